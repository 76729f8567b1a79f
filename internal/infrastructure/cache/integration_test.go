//go:build integration

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/dce-fixture-synth/internal/testutil"
	"github.com/davidleathers/dce-fixture-synth/internal/testutil/containers"
)

// txRecorder captures the command names of every MULTI/EXEC block sent by the client
type txRecorder struct {
	mu  sync.Mutex
	txs [][]string
}

func (r *txRecorder) DialHook(next redis.DialHook) redis.DialHook { return next }

func (r *txRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (r *txRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if len(cmds) > 0 && cmds[0].Name() == "multi" {
			names := make([]string, len(cmds))
			for i, c := range cmds {
				names[i] = c.Name()
			}
			r.mu.Lock()
			r.txs = append(r.txs, names)
			r.mu.Unlock()
		}
		return next(ctx, cmds)
	}
}

func (r *txRecorder) transactions() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.txs...)
}

func TestDNCSeeder_Redis(t *testing.T) {
	ctx := testutil.TestContext(t)
	logger := zaptest.NewLogger(t)

	rc, err := containers.NewRedisContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close(context.Background()) })

	client, err := NewRedisClient(ctx, rc.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	recorder := &txRecorder{}
	client.AddHook(recorder)

	const key = "dnc:integration"
	seeder, err := NewDNCSeeder(client, SeederConfig{Key: key, TTL: time.Hour, BatchSize: 7}, logger)
	require.NoError(t, err)

	entries := dncEntries(25)
	n, err := seeder.Seed(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	members, err := client.SMembers(ctx, key).Result()
	require.NoError(t, err)
	want := make([]string, len(entries))
	for i, e := range entries {
		want[i] = e.PhoneHash.String()
	}
	assert.ElementsMatch(t, want, members)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	staged, err := client.Exists(ctx, key+stagingSuffix).Result()
	require.NoError(t, err)
	assert.Zero(t, staged)

	// the swap is one MULTI/EXEC block so readers never see the key without its TTL
	assert.Equal(t, [][]string{{"multi", "rename", "expire", "exec"}}, recorder.transactions())

	t.Run("reseed replaces members", func(t *testing.T) {
		n, err := seeder.Seed(ctx, entries[:3])
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		members, err := client.SMembers(ctx, key).Result()
		require.NoError(t, err)
		assert.ElementsMatch(t, want[:3], members)
		assert.Len(t, recorder.transactions(), 2)
	})

	t.Run("empty registry removes key", func(t *testing.T) {
		n, err := seeder.Seed(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		exists, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}
