package provider

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x0"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPoolGet(t *testing.T) {
	srv := stubServer(t)
	pool := NewPool([]ChainConfig{
		{ChainID: 1, Name: "testchain", RPCURL: srv.URL},
	}, zap.NewNop())

	t.Run("unknown chain", func(t *testing.T) {
		_, err := pool.Get(999)
		assert.ErrorIs(t, err, ErrUnknownChain)
	})

	t.Run("same handle on repeated gets", func(t *testing.T) {
		first, err := pool.Get(1)
		require.NoError(t, err)
		second, err := pool.Get(1)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("concurrent gets share one handle", func(t *testing.T) {
		pool := NewPool([]ChainConfig{{ChainID: 5, Name: "c", RPCURL: srv.URL}}, zap.NewNop())

		handles := make([]*Provider, 8)
		var wg sync.WaitGroup
		for i := range handles {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, err := pool.Get(5)
				assert.NoError(t, err)
				handles[i] = p
			}(i)
		}
		wg.Wait()
		for _, h := range handles[1:] {
			assert.Same(t, handles[0], h)
		}
	})
}

func TestPoolAdd(t *testing.T) {
	srv := stubServer(t)
	pool := NewPool([]ChainConfig{
		{ChainID: 1, Name: "one", RPCURL: srv.URL},
	}, zap.NewNop())

	t.Run("new chain", func(t *testing.T) {
		err := pool.Add(ChainConfig{ChainID: 2, Name: "two", RPCURL: srv.URL}, false)
		require.NoError(t, err)

		_, err = pool.Get(2)
		assert.NoError(t, err)
	})

	t.Run("duplicate without overwrite", func(t *testing.T) {
		err := pool.Add(ChainConfig{ChainID: 1, Name: "clash", RPCURL: srv.URL}, false)
		assert.ErrorIs(t, err, ErrDuplicateChain)
	})

	t.Run("overwrite drops the dialed handle", func(t *testing.T) {
		before, err := pool.Get(1)
		require.NoError(t, err)

		require.NoError(t, pool.Add(ChainConfig{ChainID: 1, Name: "replaced", RPCURL: srv.URL}, true))

		after, err := pool.Get(1)
		require.NoError(t, err)
		assert.NotSame(t, before, after)
		assert.Equal(t, "replaced", after.ChainName())
	})
}

func TestPoolChains(t *testing.T) {
	pool := NewPool([]ChainConfig{
		{ChainID: 1, Name: "one"},
		{ChainID: 137, Name: "polygon"},
	}, zap.NewNop())

	chains := pool.Chains()
	assert.Len(t, chains, 2)
}

func TestDefaultChains(t *testing.T) {
	chains := DefaultChains()
	require.NotEmpty(t, chains)

	seen := make(map[uint64]bool)
	for _, c := range chains {
		assert.False(t, seen[c.ChainID], "duplicate chain id %d", c.ChainID)
		seen[c.ChainID] = true
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.RPCURL)
	}
	assert.True(t, seen[1], "mainnet must be registered")

	t.Run("env override", func(t *testing.T) {
		t.Setenv("ETH_MAINNET_RPC", "http://localhost:8545")
		for _, c := range DefaultChains() {
			if c.ChainID == 1 {
				assert.Equal(t, "http://localhost:8545", c.RPCURL)
			}
		}
	})
}
