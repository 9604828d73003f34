// Package workers keeps the search index in step with the database. Services
// write change events to the outbox in the same transaction as the change;
// the sync worker drains it into Elasticsearch and parks failures in the DLQ.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
)

type OutboxBatch struct{ Events []models.Outbox }

// FetchOutboxBatch claims up to limit unprocessed events, oldest first.
func FetchOutboxBatch(ctx context.Context, db *gorm.DB, limit int) (OutboxBatch, error) {
	var evts []models.Outbox
	if db.Dialector.Name() != "postgres" {
		err := claimBatch(ctx, db, limit, &evts)
		return OutboxBatch{Events: evts}, err
	}
	// FOR UPDATE SKIP LOCKED lets several workers drain the outbox
	tx := db.WithContext(ctx).Raw(`
		WITH cte AS (
		  SELECT * FROM outboxes
		  WHERE processed = false
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		UPDATE outboxes SET processed = true
		FROM cte
		WHERE outboxes.id = cte.id
		RETURNING cte.*`, limit).Scan(&evts)
	return OutboxBatch{Events: evts}, tx.Error
}

// claimBatch is the portable select-then-mark path for single-writer databases.
func claimBatch(ctx context.Context, db *gorm.DB, limit int, out *[]models.Outbox) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("processed = ?", false).Order("id ASC").Limit(limit).Find(out).Error; err != nil {
			return err
		}
		if len(*out) == 0 {
			return nil
		}
		ids := make([]int64, len(*out))
		for i, e := range *out {
			ids[i] = e.ID
		}
		return tx.Model(&models.Outbox{}).Where("id IN ?", ids).Update("processed", true).Error
	})
}

// PutDLQ inserts a failed outbox event into the DLQ table.
func PutDLQ(ctx context.Context, db *gorm.DB, ob models.Outbox, msg string) {
	metrics.DLQEvents.Inc()
	dlq := models.DLQ{
		OutboxID:   ob.ID,
		EntityType: ob.EntityType,
		EntityID:   ob.EntityID.String(),
		Op:         ob.Op,
		ErrorMsg:   msg,
		Payload:    ob.Payload,
		CreatedAt:  time.Now(),
	}
	if err := db.WithContext(ctx).Create(&dlq).Error; err != nil {
		slog.ErrorContext(ctx, "failed to insert into DLQ", "outbox_id", ob.ID, "error", err)
		return
	}
	slog.WarnContext(ctx, "DLQ record created", "outbox_id", ob.ID, "entity", ob.EntityType, "reason", msg)
}

// ListOutbox returns the newest outbox events; pendingOnly hides processed ones.
func ListOutbox(ctx context.Context, db *gorm.DB, pendingOnly bool, limit int) ([]models.Outbox, error) {
	q := db.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit))
	if pendingOnly {
		q = q.Where("processed = ?", false)
	}
	out := []models.Outbox{}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return out, nil
}

// ListDLQ returns dead letters, unresolved ones only unless all is set.
func ListDLQ(ctx context.Context, db *gorm.DB, all bool, limit int) ([]models.DLQ, error) {
	q := db.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit))
	if !all {
		q = q.Where("resolved = ?", false)
	}
	out := []models.DLQ{}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
