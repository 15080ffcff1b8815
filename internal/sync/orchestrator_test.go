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

func newOrchestrator(remote *fakeRemote, store *fakeStore, retries int, log *recordingLogger) *Orchestrator {
	qb := NewQueryBuilder(context.Background(), 2, 1.5, log)
	return NewOrchestrator(remote, store, store, qb, 2, 1, retries, log)
}

func threeRegions() map[string]models.Region {
	return map[string]models.Region{
		"Alessi 1":  mustRegion("Alessi 1", 13.35, 49.54, models.CircularShape(1)),
		"Blanco 1":  mustRegion("Blanco 1", 180, -29.83, models.CircularShape(1)),
		"Czernik 2": mustRegion("Czernik 2", 35.25, 59.9, models.CircularShape(1)),
	}
}

func TestOrchestrator_FailedRegionDoesNotAbortBatch(t *testing.T) {
	remote := &fakeRemote{
		columns:          testColumns,
		data:             sourceRows(3),
		queryErr:         common.ErrRemoteService,
		failWhenContains: "CIRCLE('ICRS', 180,", // only Blanco 1
	}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	batch, err := o.Run(context.Background(), threeRegions(), "", "")
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Completed)
	assert.Equal(t, 1, batch.Failed)
	require.Error(t, batch.Failures)
	assert.ErrorIs(t, batch.Failures, common.ErrRemoteService)
	assert.Contains(t, batch.Failures.Error(), "Blanco 1")

	assert.Equal(t, 3, store.recordCount("Alessi 1"))
	assert.Equal(t, 3, store.recordCount("Czernik 2"))
	assert.Equal(t, 0, store.recordCount("Blanco 1"))
}

func TestOrchestrator_RegionsProcessedInStableOrder(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(1)}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	batch, err := o.Run(context.Background(), threeRegions(), "", "")
	require.NoError(t, err)

	require.Len(t, batch.Regions, 3)
	assert.Equal(t, "Alessi 1", batch.Regions[0].Region)
	assert.Equal(t, "Blanco 1", batch.Regions[1].Region)
	assert.Equal(t, "Czernik 2", batch.Regions[2].Region)
	assert.NotEmpty(t, batch.BatchID)
}

func TestOrchestrator_SecondRunInsertsNothing(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(5)}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	first, err := o.Run(context.Background(), threeRegions(), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(15), first.Inserted)

	second, err := o.Run(context.Background(), threeRegions(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Completed)
	assert.Equal(t, int64(0), second.Inserted)
}

func TestOrchestrator_LoginFailureDegradesToAnonymous(t *testing.T) {
	remote := &fakeRemote{
		columns:  testColumns,
		data:     sourceRows(3),
		loginErr: common.ErrSession,
	}
	store := newFakeStore()
	log := &recordingLogger{}
	o := newOrchestrator(remote, store, 0, log)

	batch, err := o.Run(context.Background(), threeRegions(), "alice", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Completed)
	assert.Equal(t, 0, remote.logoutCalls, "no logout without a session")
	assert.Contains(t, log.warnings(), "login failed, continuing anonymously")
}

func TestOrchestrator_LogoutOnceAfterSuccessfulLogin(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(1)}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	_, err := o.Run(context.Background(), threeRegions(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 1, remote.logoutCalls)
}

func TestOrchestrator_NoCredentialsSkipsLogin(t *testing.T) {
	remote := &fakeRemote{
		columns:  testColumns,
		data:     sourceRows(1),
		loginErr: errors.New("must not be called"),
	}
	store := newFakeStore()
	log := &recordingLogger{}
	o := newOrchestrator(remote, store, 0, log)

	batch, err := o.Run(context.Background(), threeRegions(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Completed)
	assert.Empty(t, log.warnings())
}

func TestOrchestrator_RetriesTransientNetworkFailure(t *testing.T) {
	remote := &fakeRemote{
		columns:     testColumns,
		data:        sourceRows(3),
		queryErr:    common.ErrTransientNetwork,
		failOnFetch: 1,
	}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 1, &recordingLogger{})

	targets := map[string]models.Region{
		"M45": mustRegion("M45", 56.75, 24.1167, models.CircularShape(2)),
	}
	batch, err := o.Run(context.Background(), targets, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Completed)
	assert.Equal(t, 0, batch.Failed)
	assert.Equal(t, int64(3), batch.Inserted)
	assert.GreaterOrEqual(t, remote.fetches, 2, "failed fetch must be retried")
}

func TestOrchestrator_DoesNotRetryRemoteServiceErrors(t *testing.T) {
	remote := &fakeRemote{
		columns:  testColumns,
		data:     sourceRows(3),
		queryErr: common.ErrRemoteService,
	}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 3, &recordingLogger{})

	targets := map[string]models.Region{
		"M45": mustRegion("M45", 56.75, 24.1167, models.CircularShape(2)),
	}
	batch, err := o.Run(context.Background(), targets, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, remote.fetches, "remote rejections are not retryable")
}

func TestOrchestrator_StorageFailureSkipsRegionOnly(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(1)}
	store := newFakeStore()
	store.knownErr = errors.New("store unreachable")
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	targets := map[string]models.Region{
		"M45": mustRegion("M45", 56.75, 24.1167, models.CircularShape(2)),
	}
	batch, err := o.Run(context.Background(), targets, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Failed)
	assert.ErrorIs(t, batch.Failures, common.ErrStorage)
}

func TestOrchestrator_CancelledContextReportsCancellation(t *testing.T) {
	remote := &fakeRemote{columns: testColumns, data: sourceRows(1)}
	store := newFakeStore()
	o := newOrchestrator(remote, store, 0, &recordingLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, threeRegions(), "", "")
	assert.ErrorIs(t, err, context.Canceled)
}
