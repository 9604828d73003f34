package workers

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sirdesai22/hackathon-hub/internal/elastic"
	"github.com/sirdesai22/hackathon-hub/internal/models"
	"github.com/sirdesai22/hackathon-hub/internal/services"
	"github.com/sirdesai22/hackathon-hub/internal/testutil"
)

// fakeIndexer settles every queued item on Close, rejecting the documents in reject.
type fakeIndexer struct {
	mu     sync.Mutex
	items  []esutil.BulkIndexerItem
	bodies map[string]string
	reject map[string]bool
	stats  esutil.BulkIndexerStats
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{bodies: map[string]string{}, reject: map[string]bool{}}
}

func (f *fakeIndexer) Add(_ context.Context, item esutil.BulkIndexerItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.Body != nil {
		b, err := io.ReadAll(item.Body)
		if err != nil {
			return err
		}
		f.bodies[item.DocumentID] = string(b)
	}
	f.items = append(f.items, item)
	f.stats.NumAdded++
	return nil
}

func (f *fakeIndexer) Close(ctx context.Context) error {
	f.mu.Lock()
	items := f.items
	f.mu.Unlock()
	for _, item := range items {
		if f.reject[item.DocumentID] {
			res := esutil.BulkIndexerResponseItem{Status: 400}
			res.Error.Type = "mapper_parsing_exception"
			res.Error.Reason = "bad document"
			f.stats.NumFailed++
			item.OnFailure(ctx, item, res, nil)
			continue
		}
		f.stats.NumFlushed++
		item.OnSuccess(ctx, item, esutil.BulkIndexerResponseItem{Status: 200})
	}
	return nil
}

func (f *fakeIndexer) Stats() esutil.BulkIndexerStats { return f.stats }

func newWorker(conn *gorm.DB, idx *fakeIndexer) *SyncWorker {
	return &SyncWorker{
		DB:         conn,
		NewIndexer: func() (esutil.BulkIndexer, error) { return idx, nil },
	}
}

func dlqs(t *testing.T, conn *gorm.DB) []models.DLQ {
	t.Helper()
	var out []models.DLQ
	require.NoError(t, conn.Order("id").Find(&out).Error)
	return out
}

func TestProcessOnce(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, conn, "Hack")
	p := testutil.CreateParticipant(t, conn, h.ID, "sara@example.com", models.ParticipantApproved, `{"city":"Jeddah"}`)
	goneTeam := uuid.New()

	require.NoError(t, services.AddOutboxEvent(conn, services.EntityHackathon, h.ID, services.OpUpsert, nil))
	require.NoError(t, services.AddOutboxEvent(conn, services.EntityParticipant, p.ID, services.OpUpsert, nil))
	require.NoError(t, services.AddOutboxEvent(conn, services.EntityTeam, goneTeam, services.OpDelete, nil))
	require.NoError(t, services.AddOutboxEvent(conn, services.EntityTeam, uuid.New(), services.OpUpsert, nil))
	require.NoError(t, services.AddOutboxEvent(conn, "widget", uuid.New(), services.OpUpsert, nil))

	idx := newFakeIndexer()
	w := newWorker(conn, idx)

	n, err := w.processOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.Len(t, idx.items, 3, "missing rows and unknown types are not indexed")
	assert.Equal(t, elastic.IdxHackathons, idx.items[0].Index)
	assert.Equal(t, "index", idx.items[0].Action)
	assert.Equal(t, elastic.IdxParticipants, idx.items[1].Index)
	assert.Contains(t, idx.bodies[p.ID.String()], "sara@example.com")
	assert.Contains(t, idx.bodies[p.ID.String()], "Jeddah")
	assert.Equal(t, "delete", idx.items[2].Action)
	assert.Equal(t, goneTeam.String(), idx.items[2].DocumentID)

	dead := dlqs(t, conn)
	require.Len(t, dead, 1)
	assert.Equal(t, "widget", dead[0].EntityType)

	var pending int64
	require.NoError(t, conn.Model(&models.Outbox{}).Where("processed = ?", false).Count(&pending).Error)
	assert.Zero(t, pending)

	n, err = w.processOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessOnce_RejectedThenRetried(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	h := testutil.CreateHackathon(t, conn, "Hack")
	require.NoError(t, services.AddOutboxEvent(conn, services.EntityHackathon, h.ID, services.OpUpsert, nil))

	idx := newFakeIndexer()
	idx.reject[h.ID.String()] = true
	w := newWorker(conn, idx)

	_, err := w.processOnce(ctx)
	require.NoError(t, err)
	dead := dlqs(t, conn)
	require.Len(t, dead, 1)
	assert.Equal(t, services.EntityHackathon, dead[0].EntityType)
	assert.Equal(t, h.ID.String(), dead[0].EntityID)
	assert.Contains(t, dead[0].ErrorMsg, "bad document")

	// still rejected: stays unresolved with the attempt recorded
	retryIdx := newFakeIndexer()
	retryIdx.reject[h.ID.String()] = true
	w.NewIndexer = func() (esutil.BulkIndexer, error) { return retryIdx, nil }
	ok, err := w.RetryOne(ctx, dead[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
	dead = dlqs(t, conn)
	assert.False(t, dead[0].Resolved)
	assert.NotNil(t, dead[0].RetriedAt)

	healthy := newFakeIndexer()
	w.NewIndexer = func() (esutil.BulkIndexer, error) { return healthy, nil }
	ok, err = w.RetryOne(ctx, dead[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, healthy.items, 1)
	assert.Equal(t, elastic.IdxHackathons, healthy.items[0].Index)
	assert.True(t, dlqs(t, conn)[0].Resolved)
}

func TestFetchOutboxBatch_Limit(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, services.AddOutboxEvent(conn, services.EntityTeam, uuid.New(), services.OpDelete, nil))
	}

	batch, err := FetchOutboxBatch(ctx, conn, 2)
	require.NoError(t, err)
	require.Len(t, batch.Events, 2)
	assert.Less(t, batch.Events[0].ID, batch.Events[1].ID)

	pending, err := ListOutbox(ctx, conn, true, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := ListOutbox(ctx, conn, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListDLQ(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	PutDLQ(ctx, conn, models.Outbox{ID: 1, EntityType: services.EntityTeam, EntityID: uuid.New(), Op: services.OpUpsert}, "boom")
	PutDLQ(ctx, conn, models.Outbox{ID: 2, EntityType: services.EntityTeam, EntityID: uuid.New(), Op: services.OpUpsert}, "boom")
	require.NoError(t, conn.Model(&models.DLQ{}).Where("outbox_id = ?", 1).Update("resolved", true).Error)

	open, err := ListDLQ(ctx, conn, false, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.EqualValues(t, 2, open[0].OutboxID)

	all, err := ListDLQ(ctx, conn, true, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
