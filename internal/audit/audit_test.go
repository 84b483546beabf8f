package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minichat/internal/apperr"
	"minichat/internal/storage"
	"minichat/internal/storage/memstore"
)

var epoch = time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)

func bootstrap(t *testing.T) (*Service, *time.Time) {
	current := epoch
	s := NewService(zap.NewNop().Sugar(), memstore.New())
	s.now = func() time.Time { return current }
	return s, &current
}

func TestGetLogsDefaultsToLastFiveMinutes(t *testing.T) {
	req := require.New(t)
	s, clock := bootstrap(t)
	ctx := context.Background()

	s.Record(ctx, "10.0.0.1", "old@example.com", []byte(`{}`))
	*clock = clock.Add(10 * time.Minute)
	s.Record(ctx, "10.0.0.2", "new@example.com", []byte(`{"a":1}`))
	*clock = clock.Add(time.Minute)

	entries, err := s.GetLogs(ctx, nil, nil)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("10.0.0.2", entries[0].IP)
	req.Equal("new@example.com", entries[0].Username)
	req.Equal(`{"a":1}`, entries[0].RequestBody)
}

func TestGetLogsRangeInclusive(t *testing.T) {
	s, clock := bootstrap(t)
	ctx := context.Background()

	s.Record(ctx, "ip", "", nil)
	recordedAt := *clock
	*clock = clock.Add(time.Hour)

	entries, err := s.GetLogs(ctx, &recordedAt, &recordedAt)
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Nil(t, entries)

	end := recordedAt.Add(time.Second)
	entries, err = s.GetLogs(ctx, &recordedAt, &end)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	start := recordedAt.Add(-time.Second)
	entries, err = s.GetLogs(ctx, &start, &recordedAt)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGetLogsStartAfterEnd(t *testing.T) {
	s, _ := bootstrap(t)

	start := epoch
	end := epoch.Add(-time.Second)
	_, err := s.GetLogs(context.Background(), &start, &end)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetLogsEmptyIsNotFound(t *testing.T) {
	s, _ := bootstrap(t)

	_, err := s.GetLogs(context.Background(), nil, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordRedactsPassword(t *testing.T) {
	s, _ := bootstrap(t)
	ctx := context.Background()

	s.Record(ctx, "ip", "", []byte(`{"email":"a@example.com","password":"hunter22"}`))
	s.Record(ctx, "ip", "", []byte(`not json`))

	start := epoch.Add(-time.Minute)
	end := epoch.Add(time.Minute)
	entries, err := s.GetLogs(ctx, &start, &end)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, `{"email":"a@example.com","password":"[REDACTED]"}`, entries[0].RequestBody)
	require.Equal(t, `not json`, entries[1].RequestBody)
}

type failingStore struct{}

func (failingStore) CreateLogEntry(context.Context, storage.LogEntry) (storage.LogEntry, error) {
	return storage.LogEntry{}, errors.New("disk full")
}

func (failingStore) LogEntriesBetween(context.Context, time.Time, time.Time) ([]storage.LogEntry, error) {
	return nil, errors.New("disk full")
}

func TestStoreFailures(t *testing.T) {
	s := NewService(zap.NewNop().Sugar(), failingStore{})

	require.NotPanics(t, func() { s.Record(context.Background(), "ip", "", []byte(`{}`)) })

	_, err := s.GetLogs(context.Background(), nil, nil)
	require.Error(t, err)
	require.True(t, apperr.IsInternal(err))
}
