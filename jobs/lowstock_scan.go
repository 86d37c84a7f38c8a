package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-retail/meridian/internal/reports"
	"github.com/meridian-retail/meridian/internal/shared"
)

// LowStockScanner walks the stock projection and records low and out-of-stock
// positions in the audit log so restocking can be followed up.
type LowStockScanner struct {
	reports *reports.Service
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewLowStockScanner constructs the scan handler.
func NewLowStockScanner(svc *reports.Service, audit *shared.AuditLogger, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{reports: svc, audit: audit, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Invalidate {
		if err := s.reports.Invalidate(ctx); err != nil {
			s.logger.Warn("stock cache invalidation failed", slog.Any("error", err))
		}
	}

	rows, err := s.reports.LowStock(ctx)
	if err != nil {
		s.logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	if len(rows) == 0 {
		s.logger.Info("low stock scan clean")
		return nil
	}

	for _, row := range rows {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "stock.low",
			Entity:   "product",
			EntityID: itoa64(row.ProductID),
			Meta: map[string]any{
				"store_id":  row.StoreID,
				"on_hand":   row.OnHand,
				"threshold": row.LowStockThreshold,
				"class":     row.Class,
			},
		}); err != nil {
			s.logger.Warn("low stock audit failed",
				slog.Int64("product_id", row.ProductID),
				slog.Any("error", err))
		}
	}
	s.logger.Info("low stock scan complete", slog.Int("flagged", len(rows)))
	return nil
}
