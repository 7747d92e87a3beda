package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/observability"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSaver struct {
	mu    sync.Mutex
	saved []*types.Record
	err   error
}

func (ms *mockSaver) Save(_ context.Context, r *types.Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	ms.saved = append(ms.saved, r)
	return nil
}

func (ms *mockSaver) vehicles() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []string
	for _, r := range ms.saved {
		out = append(out, r.VehicleNumber)
	}
	return out
}

type mockLocationSaver struct {
	mockSaver
}

func (m *mockLocationSaver) LatestBySerial(context.Context, string) (types.Position2D, bool, error) {
	return types.Position2D{Latitude: 1, Longitude: 2}, true, nil
}

type mockArchiveSaver struct {
	mockSaver
	frames []string
}

func (m *mockArchiveSaver) ArchiveFrame(_ context.Context, body string, _ time.Time) error {
	m.frames = append(m.frames, body)
	return nil
}

func TestRepository_ArchiveFrame(t *testing.T) {
	plain := &mockSaver{}
	archive := &mockArchiveSaver{}

	repo := NewRepository()
	repo.AddStore("queue", plain)
	repo.AddStore("history", archive)

	require.NoError(t, repo.ArchiveFrame(context.Background(), "CLIENT_1NS,DEV1", time.Now()))
	assert.Equal(t, []string{"CLIENT_1NS,DEV1"}, archive.frames)
	assert.Empty(t, plain.vehicles())
}

func TestRepository_SaveFanOut(t *testing.T) {
	log.SetOutput(io.Discard)

	failing := &mockSaver{err: errors.New("connection refused")}
	ok := &mockSaver{}

	repo := NewRepository()
	repo.AddStore("failing", failing)
	repo.AddStore("ok", ok)

	err := repo.Save(context.Background(), &types.Record{VehicleNumber: "V1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, []string{"V1"}, ok.vehicles())
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.StoreErrors.WithLabelValues("failing")))
}

func TestRepository_LocationReader(t *testing.T) {
	repo := NewRepository()
	repo.AddStore("queue", &mockSaver{})
	assert.Nil(t, repo.LocationReader())

	repo.AddStore("history", &mockLocationSaver{})
	lr := repo.LocationReader()
	require.NotNil(t, lr)

	pos, found, err := lr.LatestBySerial(context.Background(), "DEV1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2.0, pos.Longitude)
}

func TestRepository_LoadStorages(t *testing.T) {
	repo := NewRepository()
	assert.ErrorIs(t, repo.LoadStorages(nil), ErrInvalidStorage)
	assert.ErrorIs(t, repo.LoadStorages(map[string]map[string]string{"mongodb": {}}), ErrUnknownStorage)
}

type blockingSaver struct {
	mockSaver
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSaver) Save(ctx context.Context, r *types.Record) error {
	b.once.Do(func() {
		close(b.started)
		<-b.release
	})
	return b.mockSaver.Save(ctx, r)
}

func TestAsyncRepository_DropOldest(t *testing.T) {
	log.SetOutput(io.Discard)

	saver := &blockingSaver{started: make(chan struct{}), release: make(chan struct{})}
	ar := NewAsyncRepository(saver, 2, 1)
	before := testutil.ToFloat64(observability.QueueOverflow)

	require.NoError(t, ar.Enqueue(&types.Record{VehicleNumber: "V1"}))
	<-saver.started

	for _, v := range []string{"V2", "V3", "V4"} {
		require.NoError(t, ar.Enqueue(&types.Record{VehicleNumber: v}))
	}
	assert.Equal(t, 2, ar.Len())

	close(saver.release)
	ar.Close()

	assert.Equal(t, []string{"V1", "V3", "V4"}, saver.vehicles())
	assert.Equal(t, before+1, testutil.ToFloat64(observability.QueueOverflow))
}

func TestAsyncRepository_Closed(t *testing.T) {
	ar := NewAsyncRepository(&mockSaver{}, 4, 2)
	ar.Close()
	ar.Close()
	assert.ErrorIs(t, ar.Enqueue(&types.Record{}), ErrQueueClosed)
}
