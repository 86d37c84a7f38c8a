package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTokenCleanup prunes consumed receipt tokens past their retention.
	TaskTokenCleanup = "receiving:token_cleanup"
	// TaskLowStockScan refreshes the stock projection and records low-stock
	// positions in the audit log.
	TaskLowStockScan = "stock:low_stock_scan"
)

// TokenCleanupPayload parameterises one cleanup run.
type TokenCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewTokenCleanupTask constructs an Asynq task.
func NewTokenCleanupTask(payload TokenCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenCleanup, data), nil
}

// LowStockScanPayload parameterises one scan run.
type LowStockScanPayload struct {
	Invalidate bool `json:"invalidate"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
