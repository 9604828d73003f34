package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/elastic"
	"github.com/sirdesai22/hackathon-hub/internal/metrics"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/services"
)

const batchSize = 200

type SyncWorker struct {
	DB *gorm.DB
	ES *es.Client

	// NewIndexer overrides the bulk indexer; nil builds one on ES.
	NewIndexer func() (esutil.BulkIndexer, error)
	Interval   time.Duration
}

// Run ensures the indexes exist, then drains the outbox until ctx ends.
func (w *SyncWorker) Run(ctx context.Context) error {
	if err := elastic.EnsureIndexes(ctx, w.ES); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.processOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "sync worker error", "error", err)
			}
		}
	}
}

func (w *SyncWorker) indexer() (esutil.BulkIndexer, error) {
	if w.NewIndexer != nil {
		return w.NewIndexer()
	}
	return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: w.ES, FlushBytes: 5 << 20, NumWorkers: 2,
	})
}

// processOnce syncs one outbox batch and returns how many events it claimed.
func (w *SyncWorker) processOnce(ctx context.Context) (int, error) {
	batch, err := FetchOutboxBatch(ctx, w.DB, batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch.Events) == 0 {
		return 0, nil
	}

	bi, err := w.indexer()
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, e := range batch.Events {
		// events are already marked processed, so failures go to the DLQ instead of looping
		toDLQ := func(msg string) {
			metrics.FailedEvents.Inc()
			PutDLQ(ctx, w.DB, e, msg)
		}
		if err := w.applyEvent(ctx, bi, e, toDLQ); err != nil {
			toDLQ(err.Error())
			continue
		}
	}

	if err := bi.Close(ctx); err != nil {
		return len(batch.Events), err
	}
	stats := bi.Stats()
	slog.InfoContext(ctx, "outbox batch synced", "events", len(batch.Events), "flushed", stats.NumFlushed, "failed", stats.NumFailed)
	return len(batch.Events), nil
}

// applyEvent queues the index operation for one event. onFailure runs when
// Elasticsearch rejects the item after the indexer flushes.
func (w *SyncWorker) applyEvent(ctx context.Context, bi esutil.BulkIndexer, e models.Outbox, onFailure func(string)) error {
	index, doc, err := w.document(ctx, e)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// the row is gone; a later DELETE event for it is on its way
		slog.DebugContext(ctx, "outbox entity no longer exists", "entity", e.EntityType, "id", e.EntityID)
		metrics.ProcessedEvents.Inc()
		return nil
	}
	if err != nil {
		return err
	}
	action := "index"
	if e.Op == services.OpDelete {
		action = "delete"
	}
	return w.add(ctx, bi, index, e.EntityID.String(), action, doc, onFailure)
}

// document loads the entity behind e and renders its search document. DELETE
// events only need the index name.
func (w *SyncWorker) document(ctx context.Context, e models.Outbox) (string, []byte, error) {
	db := w.DB.WithContext(ctx)
	switch e.EntityType {
	case services.EntityHackathon:
		if e.Op == services.OpDelete {
			return elastic.IdxHackathons, nil, nil
		}
		var h models.Hackathon
		if err := db.First(&h, "id = ?", e.EntityID).Error; err != nil {
			return "", nil, err
		}
		doc, err := elastic.BuildHackathonDoc(h)
		return elastic.IdxHackathons, doc, err

	case services.EntityParticipant:
		if e.Op == services.OpDelete {
			return elastic.IdxParticipants, nil, nil
		}
		var p models.Participant
		if err := db.Preload("User").First(&p, "id = ?", e.EntityID).Error; err != nil {
			return "", nil, err
		}
		doc, err := elastic.BuildParticipantDoc(p)
		return elastic.IdxParticipants, doc, err

	case services.EntityTeam:
		if e.Op == services.OpDelete {
			return elastic.IdxTeams, nil, nil
		}
		var t models.Team
		if err := db.First(&t, "id = ?", e.EntityID).Error; err != nil {
			return "", nil, err
		}
		doc, err := elastic.BuildTeamDoc(t)
		return elastic.IdxTeams, doc, err
	}
	return "", nil, fmt.Errorf("unknown entity_type=%s", e.EntityType)
}

func (w *SyncWorker) add(ctx context.Context, bi esutil.BulkIndexer, index, docID, action string, body []byte, onFailure func(string)) error {
	item := esutil.BulkIndexerItem{
		Action:     action,
		DocumentID: docID,
		Index:      index,
		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			metrics.ProcessedEvents.Inc()
			slog.DebugContext(ctx, "synced document", "index", index, "id", docID, "action", action)
		},
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			// deleting a document that was never indexed is fine
			if action == "delete" && res.Status == 404 {
				metrics.ProcessedEvents.Inc()
				return
			}
			onFailure(bulkFailure(res, err))
		},
	}
	if len(body) > 0 {
		item.Body = bytes.NewReader(body)
	}
	return bi.Add(ctx, item)
}

func bulkFailure(res esutil.BulkIndexerResponseItem, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case res.Error.Reason != "":
		return fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
	default:
		return fmt.Sprintf("status=%d failed to index", res.Status)
	}
}
