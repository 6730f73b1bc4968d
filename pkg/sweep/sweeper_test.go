package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "github.com/marmos91/dittovault/pkg/blob/memory"
	"github.com/marmos91/dittovault/pkg/vault"
	vaultmem "github.com/marmos91/dittovault/pkg/vault/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newSweepFixture(t *testing.T) (*vault.Service, *blobmem.MemoryStore, *fakeClock) {
	t.Helper()
	blobs := blobmem.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := vault.NewService(vault.ServiceConfig{
		Store: vaultmem.NewMemoryStore(),
		Blobs: blobs,
		Clock: clock,
	})
	require.NoError(t, err)
	return svc, blobs, clock
}

func TestSweeper_PurgesExpiredTrash(t *testing.T) {
	svc, blobs, clock := newSweepFixture(t)
	ctx := context.Background()

	link, err := svc.Ingest(ctx, []byte("swept away"), "old.txt", "text/plain", "alice", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Dereference(ctx, "alice", link.ID))

	keeper, err := svc.Ingest(ctx, []byte("still wanted"), "keep.txt", "text/plain", "alice", nil)
	require.NoError(t, err)

	// Jump past the retention window and sweep.
	clock.now = clock.now.Add(31 * 24 * time.Hour)
	sweeper := NewSweeper(svc, clock, Config{Enabled: true, Retention: 30 * 24 * time.Hour})

	stats, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ExpiredCount)
	assert.Equal(t, uint64(1), stats.PurgedCount)
	assert.Equal(t, uint64(0), stats.FailedCount)

	trash, err := svc.ListTrash(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, trash)
	assert.Equal(t, 1, blobs.Len(), "only the active file's blob survives")

	// The untouched file is still there.
	_, err = svc.GetContentRecord(ctx, "alice", keeper.ID)
	require.NoError(t, err)
}

func TestSweeper_KeepsTrashInsideRetention(t *testing.T) {
	svc, blobs, clock := newSweepFixture(t)
	ctx := context.Background()

	link, err := svc.Ingest(ctx, []byte("recently deleted"), "fresh.txt", "text/plain", "alice", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Dereference(ctx, "alice", link.ID))

	clock.now = clock.now.Add(24 * time.Hour)
	sweeper := NewSweeper(svc, clock, Config{Enabled: true, Retention: 30 * 24 * time.Hour})

	stats, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.ExpiredCount)

	trash, err := svc.ListTrash(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, trash, 1, "trash inside the retention window must survive a sweep")
	assert.Equal(t, 1, blobs.Len())
}

func TestSweeper_DryRunPurgesNothing(t *testing.T) {
	svc, _, clock := newSweepFixture(t)
	ctx := context.Background()

	link, err := svc.Ingest(ctx, []byte("spared by dry run"), "dry.txt", "text/plain", "alice", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Dereference(ctx, "alice", link.ID))

	clock.now = clock.now.Add(31 * 24 * time.Hour)
	sweeper := NewSweeper(svc, clock, Config{Enabled: true, Retention: 30 * 24 * time.Hour, DryRun: true})

	stats, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ExpiredCount)
	assert.Equal(t, uint64(0), stats.PurgedCount)

	trash, err := svc.ListTrash(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, trash, 1)
}

func TestSweeper_StartStop(t *testing.T) {
	svc, _, clock := newSweepFixture(t)

	sweeper := NewSweeper(svc, clock, Config{Enabled: true, Interval: time.Hour})
	sweeper.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sweeper.Stop(ctx))
}

func TestSweeper_DisabledIsInert(t *testing.T) {
	svc, _, clock := newSweepFixture(t)

	sweeper := NewSweeper(svc, clock, Config{Enabled: false})
	sweeper.Start()
	require.NoError(t, sweeper.Stop(context.Background()))
}
