package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

func newDownloader(remote *fakeRemote, store *fakeStore, partitionSize int, log *recordingLogger) *Downloader {
	qb := NewQueryBuilder(context.Background(), partitionSize, 1.5, log)
	return NewDownloader(remote, store, store, qb, partitionSize, log)
}

func newExclusion(t *testing.T, store *fakeStore, region string) *ExclusionManager {
	t.Helper()
	excl, err := NewExclusionManager(context.Background(), region, store)
	require.NoError(t, err)
	return excl
}

// Mirrors the canonical scenario: 5 remote records, partition size 2,
// nothing stored yet. Three fetches of 2, 2 and 1 rows, all five rows
// persisted, the region saved once, and the exclusion set growing 0, 2, 4
// across fetch starts.
func TestDownloader_PartitionedRun(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(5), loggedIn: true}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateDone, summary.State)
	require.NoError(t, summary.Err)
	assert.Equal(t, 3, summary.Fetches)
	assert.Equal(t, int64(5), summary.Downloaded)
	assert.Equal(t, int64(5), summary.Inserted)
	assert.Equal(t, int64(0), summary.Skipped)
	assert.Equal(t, 5, store.recordCount("M45"))
	assert.Equal(t, 1, store.regionSaves, "region must be saved exactly once")
	assert.Equal(t, []int{0, 2, 4}, remote.exclAtFetch)
}

// N divisible by P: the final full page is followed by one empty fetch.
func TestDownloader_ExactMultipleEndsOnEmptyPage(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(4), loggedIn: true}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateEmpty, summary.State)
	assert.Equal(t, 3, summary.Fetches)
	assert.Equal(t, int64(4), summary.Inserted)
	assert.Equal(t, 4, store.recordCount("M45"))
}

func TestDownloader_UnboundedFetchesEverythingInOneCall(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(5), loggedIn: true}
	store := newFakeStore()
	d := newDownloader(remote, store, 0, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateDone, summary.State)
	assert.Equal(t, 1, summary.Fetches)
	assert.Equal(t, int64(5), summary.Inserted)
}

func TestDownloader_TrulyEmptyRegionWarns(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, loggedIn: true}
	store := newFakeStore()
	log := &recordingLogger{}
	d := newDownloader(remote, store, 2, log)
	region := mustRegion("Empty", 0, 0, models.CircularShape(1))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "Empty"))

	assert.Equal(t, StateEmpty, summary.State)
	assert.Equal(t, 1, summary.Fetches)
	assert.Equal(t, 0, store.regionSaves, "empty region must not be persisted")
	require.Len(t, log.warnings(), 1)
	assert.Contains(t, log.warnings()[0], "no matching data")
}

// Everything already stored: the first fetch excludes all identifiers and
// comes back empty, a benign no-op rather than a warning.
func TestDownloader_NothingNewIsBenignNoop(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(3), loggedIn: true}
	store := newFakeStore()
	store.serialByName["M45"] = 1
	store.nameBySerial[1] = "M45"
	store.rows["M45"] = map[int64]struct{}{100: {}, 101: {}, 102: {}}
	log := &recordingLogger{}
	d := newDownloader(remote, store, 2, log)
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateEmpty, summary.State)
	assert.Equal(t, int64(0), summary.Downloaded)
	assert.Empty(t, log.warnings())
}

func TestDownloader_AnonymousSessionUsesInlineExclusion(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(3)}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateDone, summary.State)
	assert.Equal(t, int64(3), summary.Inserted)
	for _, u := range remote.uploads {
		assert.Nil(t, u, "anonymous session must not upload exclusion tables")
	}
	assert.Contains(t, remote.queries[1], "NOT IN (100, 101)")
}

func TestDownloader_AuthenticatedSessionUploadsExclusions(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(3), loggedIn: true}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateDone, summary.State)
	assert.Nil(t, remote.uploads[0], "empty exclusion set needs no upload")
	require.NotNil(t, remote.uploads[1])
	assert.Equal(t, []int64{100, 101}, remote.uploads[1].IDs)
	assert.Contains(t, remote.queries[1], "LEFT JOIN tap_upload."+remote.uploads[1].TableName)
}

func TestDownloader_FetchFailureKeepsPriorPartitions(t *testing.T) {
	remote := &fakeRemote{
		columns:     testColumns,
		data:        sourceRows(5),
		loggedIn:    true,
		queryErr:    common.ErrTransientNetwork,
		failOnFetch: 2,
	}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateFailed, summary.State)
	assert.ErrorIs(t, summary.Err, common.ErrTransientNetwork)
	assert.Equal(t, int64(2), summary.Inserted)
	assert.Equal(t, 2, store.recordCount("M45"), "first partition must stay persisted")
}

func TestDownloader_StorageFailureEndsRegion(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(3), loggedIn: true}
	store := newFakeStore()
	store.saveBatchErr = errors.New("disk full")
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	summary := d.Run(context.Background(), region, newExclusion(t, store, "M45"))

	assert.Equal(t, StateFailed, summary.State)
	assert.ErrorIs(t, summary.Err, common.ErrStorage)
}

// Rerunning a completed region inserts nothing new.
func TestDownloader_SecondRunIsIdempotent(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(5), loggedIn: true}
	store := newFakeStore()
	d := newDownloader(remote, store, 2, &recordingLogger{})
	region := mustRegion("M45", 56.75, 24.1167, models.CircularShape(2))

	first := d.Run(context.Background(), region, newExclusion(t, store, "M45"))
	require.Equal(t, StateDone, first.State)
	require.Equal(t, int64(5), first.Inserted)

	second := d.Run(context.Background(), region, newExclusion(t, store, "M45"))
	assert.Equal(t, StateEmpty, second.State)
	assert.Equal(t, int64(0), second.Inserted)
	assert.Equal(t, 5, store.recordCount("M45"))
}
