package appconfig

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/cache"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeLookup) GetAppConfig(_ context.Context, key, orgID string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key+"/"+orgID]
	return v, ok, nil
}

func TestCachedPopulatesCache(t *testing.T) {
	log.SetOutput(io.Discard)
	ctx := context.Background()

	mem := cache.NewMemory()
	lookup := &fakeLookup{values: map[string]string{"rate_limiter_tcp/": "45"}}
	src := NewCached(mem, lookup, time.Minute)

	v, ok, err := src.Get(ctx, KeyThrottleInterval, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "45", v)

	v, ok, err = src.Get(ctx, KeyThrottleInterval, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "45", v)
	assert.Equal(t, 1, lookup.calls)

	cached, ok, _ := mem.Get(ctx, "app_config:rate_limiter_tcp")
	assert.True(t, ok)
	assert.Equal(t, "45", cached)
}

func TestCachedOrgScope(t *testing.T) {
	log.SetOutput(io.Discard)
	ctx := context.Background()

	lookup := &fakeLookup{values: map[string]string{"geohash_precision/org1": "40"}}
	src := NewCached(cache.NewMemory(), lookup, time.Minute)

	_, ok, err := src.Get(ctx, KeyGeohashPrecision, "")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := src.Get(ctx, KeyGeohashPrecision, "org1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "40", v)
}

func TestIntFallback(t *testing.T) {
	log.SetOutput(io.Discard)
	ctx := context.Background()

	tests := []struct {
		name string
		src  Source
		want int
	}{
		{"nil source", nil, 30},
		{"absent", Static{}, 30},
		{"valid", Static{KeyThrottleInterval: "10"}, 10},
		{"not a number", Static{KeyThrottleInterval: "ten"}, 30},
		{"negative", Static{KeyThrottleInterval: "-5"}, 30},
		{"unavailable", NewCached(nil, &fakeLookup{err: errors.New("connection refused")}, 0), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Int(ctx, tt.src, KeyThrottleInterval, 30))
		})
	}
}

func TestSeconds(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 120*time.Second, Seconds(ctx, Static{}, KeyIgnitionOffInterval, 120*time.Second))
	assert.Equal(t, 5*time.Second, Seconds(ctx, Static{KeyIgnitionOffInterval: "5"}, KeyIgnitionOffInterval, 120*time.Second))
}
