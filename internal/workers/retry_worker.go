package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirdesai22/hackathon-hub/internal/models"
)

// RetryDLQ re-applies unresolved dead letters every interval until ctx ends.
func (w *SyncWorker) RetryDLQ(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var dlqs []models.DLQ
			if err := w.DB.WithContext(ctx).Where("resolved = ?", false).Order("id").Limit(50).Find(&dlqs).Error; err != nil {
				slog.ErrorContext(ctx, "DLQ fetch error", "error", err)
				continue
			}
			if len(dlqs) == 0 {
				continue
			}
			resolved, err := w.retry(ctx, dlqs)
			if err != nil {
				slog.ErrorContext(ctx, "DLQ retry error", "error", err)
				continue
			}
			slog.InfoContext(ctx, "DLQ retry pass", "attempted", len(dlqs), "resolved", resolved)
		}
	}
}

// RetryOne re-applies a single dead letter and reports whether it resolved.
func (w *SyncWorker) RetryOne(ctx context.Context, id int64) (bool, error) {
	var d models.DLQ
	if err := w.DB.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return false, err
	}
	if d.Resolved {
		return true, nil
	}
	n, err := w.retry(ctx, []models.DLQ{d})
	return n == 1, err
}

// retry replays dead letters through one bulk indexer. Entries that still fail
// stay unresolved with the new error recorded.
func (w *SyncWorker) retry(ctx context.Context, dlqs []models.DLQ) (int, error) {
	bi, err := w.indexer()
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	var mu sync.Mutex
	failed := map[int64]string{}
	fail := func(id int64) func(string) {
		return func(msg string) {
			mu.Lock()
			failed[id] = msg
			mu.Unlock()
		}
	}

	for _, d := range dlqs {
		entityID, err := uuid.Parse(d.EntityID)
		if err != nil {
			fail(d.ID)(fmt.Sprintf("bad entity id %q", d.EntityID))
			continue
		}
		ob := models.Outbox{ID: d.OutboxID, EntityType: d.EntityType, EntityID: entityID, Op: d.Op}
		if err := w.applyEvent(ctx, bi, ob, fail(d.ID)); err != nil {
			fail(d.ID)(err.Error())
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, err
	}

	now := time.Now()
	resolved := 0
	for _, d := range dlqs {
		updates := map[string]any{"retried_at": &now}
		if msg, ok := failed[d.ID]; ok {
			updates["error_msg"] = msg
		} else {
			updates["resolved"] = true
			resolved++
		}
		if err := w.DB.WithContext(ctx).Model(&models.DLQ{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return resolved, fmt.Errorf("update dlq %d: %w", d.ID, err)
		}
	}
	return resolved, nil
}
