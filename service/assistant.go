package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"sitediary/ai"
	"sitediary/cache"
	"sitediary/export"
	"sitediary/metrics"
)

// FallbackMessage replaces the assistant's answer whenever completion fails.
const FallbackMessage = "Sorry, the assistant is unavailable right now. Please try again in a moment."

// SummaryRequest asks the assistant about the reports in [From, To].
type SummaryRequest struct {
	Prompt  string       `json:"prompt"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	History []ai.Message `json:"history"`
}

type SummaryResult struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	Cached   bool   `json:"cached"`
}

// summaryContext is the structured data sent along with the prompt.
type summaryContext struct {
	From       string               `json:"from,omitempty"`
	To         string               `json:"to,omitempty"`
	Days       []metrics.DailyPoint `json:"days"`
	Activities []export.Entry       `json:"activities"`
}

// AssistantService answers questions about report history. The completer and
// cache are optional.
type AssistantService struct {
	completer ai.Completer
	kv        cache.KV
	ttl       time.Duration
	reports   *ReportService
	logger    *zap.Logger
}

func NewAssistantService(c ai.Completer, kv cache.KV, ttl time.Duration, reports *ReportService, logger *zap.Logger) *AssistantService {
	return &AssistantService{completer: c, kv: kv, ttl: ttl, reports: reports, logger: logger}
}

// Summarize never fails on completion errors; they yield FallbackMessage.
func (s *AssistantService) Summarize(ctx context.Context, userID string, req SummaryRequest) (*SummaryResult, error) {
	if req.Prompt == "" {
		return nil, invalid("prompt is required")
	}
	if s.completer == nil {
		return &SummaryResult{Text: FallbackMessage, Fallback: true}, nil
	}

	reports := s.reports.reportsOrEmpty(ctx, userID, req.From, req.To)
	data := summaryContext{
		From:       req.From,
		To:         req.To,
		Days:       metrics.Series(reports),
		Activities: export.Latest(reports, false),
	}

	key := s.cacheKey(userID, req, data)
	if key != "" {
		if text, err := s.kv.Get(ctx, key); err == nil {
			return &SummaryResult{Text: text, Cached: true}, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("assistant cache read failed", zap.Error(err))
		}
	}

	text, err := s.completer.Complete(ctx, req.Prompt, data, req.History)
	if err != nil || text == "" {
		s.logger.Warn("assistant completion failed", zap.String("user_id", userID), zap.Error(err))
		return &SummaryResult{Text: FallbackMessage, Fallback: true}, nil
	}

	if key != "" {
		if err := s.kv.Set(ctx, key, text, s.ttl); err != nil {
			s.logger.Warn("assistant cache write failed", zap.Error(err))
		}
	}
	return &SummaryResult{Text: text}, nil
}

func (s *AssistantService) cacheKey(userID string, req SummaryRequest, data summaryContext) string {
	if s.kv == nil {
		return ""
	}
	ctxJSON, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	histJSON, err := json.Marshal(req.History)
	if err != nil {
		return ""
	}
	return cache.Key("assistant", s.completer.Model(), userID, req.Prompt, string(ctxJSON), string(histJSON))
}
