package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepStoreRoundTrip(t *testing.T) {
	database := openTestDB(t)
	store := NewSweepStore(database)

	started := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	request := json.RawMessage(`{"controllers":["etcs","dista"],"train_counts":[2,3]}`)
	require.NoError(t, store.Insert(SweepRecord{
		SweepID:   "sweep-1",
		Status:    "running",
		Request:   request,
		StartedAt: started,
	}))

	got, err := store.Get("sweep-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)
	assert.JSONEq(t, string(request), string(got.Request))
	assert.Nil(t, got.Results)
	assert.Empty(t, got.Error)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Nil(t, got.CompletedAt)

	completed := started.Add(5 * time.Minute)
	results := json.RawMessage(`[{"controller":"etcs","trains":2,"throughput":2}]`)
	require.NoError(t, store.UpdateResults("sweep-1", "complete", results, "", &completed))

	got, err = store.Get("sweep-1")
	require.NoError(t, err)
	assert.Equal(t, "complete", got.Status)
	assert.JSONEq(t, string(results), string(got.Results))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(completed))
}

func TestSweepStoreRecordsError(t *testing.T) {
	database := openTestDB(t)
	store := NewSweepStore(database)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Insert(SweepRecord{
		SweepID:   "sweep-1",
		Status:    "running",
		Request:   json.RawMessage(`{}`),
		StartedAt: started,
	}))
	require.NoError(t, store.UpdateResults("sweep-1", "error", nil, "sweep cancelled: context canceled", nil))

	got, err := store.Get("sweep-1")
	require.NoError(t, err)
	assert.Equal(t, "error", got.Status)
	assert.Contains(t, got.Error, "cancelled")
	assert.Nil(t, got.Results)
	assert.Nil(t, got.CompletedAt)
}

func TestSweepStoreGetUnknown(t *testing.T) {
	database := openTestDB(t)
	store := NewSweepStore(database)

	_, err := store.Get("missing")
	require.Error(t, err)
}
