package logging

import (
	"go.uber.org/zap"
)

// Audit actions.
const (
	ActionReportDelete = "REPORT_DELETE"
	ActionRippleShift  = "ACTIVITY_RIPPLE_SHIFT"
	ActionMasterSync   = "MASTER_SYNC"
	ActionMasterDelete = "MASTER_DELETE"
	ActionExport       = "DATA_EXPORT"
	ActionSession      = "SESSION_START"
)

// Audit records a user action on the audit channel of logger.
func Audit(logger *zap.Logger, userID, action string, fields ...zap.Field) {
	logger.Named("audit").Info("audit",
		append([]zap.Field{zap.String("user_id", userID), zap.String("action", action)}, fields...)...,
	)
}
