package providers_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"stampd/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMemoizesSuccess(t *testing.T) {
	pctx := providers.NewContext()
	calls := 0

	for i := 0; i < 3; i++ {
		v, err := pctx.Resolve("key", func() (any, error) {
			calls++
			return "value", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}

	assert.Equal(t, 1, calls)
}

func TestResolveConcurrentCallersShareOneFetch(t *testing.T) {
	pctx := providers.NewContext()

	var calls atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := pctx.Resolve("key", func() (any, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}

func TestResolveDoesNotCacheErrors(t *testing.T) {
	pctx := providers.NewContext()
	calls := 0

	_, err := pctx.Resolve("key", func() (any, error) {
		calls++
		return nil, errors.New("upstream down")
	})
	require.Error(t, err)

	v, err := pctx.Resolve("key", func() (any, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls, "a failed fetch must not poison the key")
}

func TestResolveKeysAreIndependent(t *testing.T) {
	pctx := providers.NewContext()

	a, err := pctx.Resolve("a", func() (any, error) { return 1, nil })
	require.NoError(t, err)
	b, err := pctx.Resolve("b", func() (any, error) { return 2, nil })
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)

	v, ok := pctx.Value("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = pctx.Value("missing")
	assert.False(t, ok)
}
