package domain

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetOutput(io.Discard)
}

// body собирает тело кадра с заданными серийным номером, координатами и зажиганием.
func body(serial, lat, lng, ignition string) string {
	fields := make([]string, 28)
	fields[0] = "CLIENT_1NS"
	fields[1] = serial
	fields[2] = "101"
	fields[3] = lat
	fields[4] = lng
	fields[8] = "42.5"
	fields[9] = "1024"
	fields[10] = "90"
	fields[18] = "0"
	fields[27] = ignition
	return strings.Join(fields, ",")
}

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedCache() (*cache.Memory, *clock) {
	c := &clock{t: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)}
	m := cache.NewMemory()
	m.Now = c.Now
	return m, c
}

type fakeRegistry struct {
	numbers map[string][]string
	err     error
	calls   int
}

func (f *fakeRegistry) FindVehicleNumbers(_ context.Context, serial string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.numbers[serial], nil
}

type fakeHistory struct {
	positions map[string]types.Position2D
	err       error
}

func (f *fakeHistory) LatestBySerial(_ context.Context, serial string) (types.Position2D, bool, error) {
	if f.err != nil {
		return types.Position2D{}, false, f.err
	}
	pos, ok := f.positions[serial]
	return pos, ok, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	records []*types.Record
}

func (q *fakeQueue) Enqueue(r *types.Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, r)
	return nil
}

func (q *fakeQueue) ignitions() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []int
	for _, r := range q.records {
		out = append(out, r.Ignition)
	}
	return out
}

type fakeArchive struct {
	mu     sync.Mutex
	frames []string
}

func (a *fakeArchive) ArchiveFrame(_ context.Context, body string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = append(a.frames, body)
	return nil
}

type failingCache struct{}

var errCacheDown = errors.New("dial tcp 127.0.0.1:6379: connection refused")

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errCacheDown
}
func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (failingCache) Del(context.Context, string) error { return errCacheDown }
