package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitediary/db"
	"sitediary/logging"
	"sitediary/models"
)

// MasterService maintains the user's master-data catalog.
type MasterService struct {
	store     db.Store
	memory    *MemoryService
	validator *Validator
	logger    *zap.Logger
}

func NewMasterService(store db.Store, mem *MemoryService, v *Validator, logger *zap.Logger) *MasterService {
	return &MasterService{store: store, memory: mem, validator: v, logger: logger}
}

func (s *MasterService) List(ctx context.Context, userID string, category models.Category) ([]models.MasterDataItem, error) {
	if !category.IsValid() {
		return nil, invalid("unknown category %q", category)
	}
	items, err := s.store.ListMaster(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("list master %s: %w", category, err)
	}
	if items == nil {
		items = []models.MasterDataItem{}
	}
	return items, nil
}

func (s *MasterService) Save(ctx context.Context, userID string, item *models.MasterDataItem) (*models.MasterDataItem, error) {
	item.Code = strings.TrimSpace(item.Code)
	item.Name = strings.TrimSpace(item.Name)
	if err := s.validator.Struct(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveMaster(ctx, userID, item); err != nil {
		return nil, fmt.Errorf("save master item: %w", err)
	}
	return item, nil
}

func (s *MasterService) Delete(ctx context.Context, userID string, category models.Category, code string) error {
	if !category.IsValid() {
		return invalid("unknown category %q", category)
	}
	if strings.TrimSpace(code) == "" {
		return invalid("code is required")
	}
	if err := s.store.DeleteMaster(ctx, userID, category, code); err != nil {
		return fmt.Errorf("delete master item: %w", err)
	}
	logging.Audit(s.logger, userID, logging.ActionMasterDelete,
		zap.String("category", string(category)), zap.String("code", code))
	return nil
}

// Sync copies every resource master item into the user's memory, overwriting
// remembered templates with the same code. Returns the count per category.
func (s *MasterService) Sync(ctx context.Context, userID string) (map[models.Category]int, error) {
	var items []models.MasterDataItem
	for _, c := range models.MasterCategories {
		list, err := s.store.ListMaster(ctx, userID, c)
		if err != nil {
			return nil, fmt.Errorf("list master %s: %w", c, err)
		}
		items = append(items, list...)
	}
	counts, err := s.memory.Seed(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	for _, c := range models.MasterCategories {
		if _, ok := counts[c]; !ok {
			counts[c] = 0
		}
	}
	logging.Audit(s.logger, userID, logging.ActionMasterSync, zap.Int("items", len(items)))
	return counts, nil
}
