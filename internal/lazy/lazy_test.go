package lazy

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	t.Run("initializes once", func(t *testing.T) {
		var calls atomic.Int32
		v := New(func() (int, error) {
			calls.Add(1)
			return 42, nil
		})
		require.False(t, v.Loaded())

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := v.Get()
				require.NoError(t, err)
				require.Equal(t, 42, n)
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
		require.True(t, v.Loaded())
	})

	t.Run("retries after failure", func(t *testing.T) {
		fail := true
		v := New(func() (string, error) {
			if fail {
				return "", errors.New("model not found")
			}
			return "model", nil
		})

		_, err := v.Get()
		require.EqualError(t, err, "model not found")
		require.False(t, v.Loaded())

		fail = false
		s, err := v.Get()
		require.NoError(t, err)
		require.Equal(t, "model", s)
	})

	t.Run("reset", func(t *testing.T) {
		v := New(func() (int, error) { return 7, nil })
		_, ok := v.Reset()
		require.False(t, ok)

		_, err := v.Get()
		require.NoError(t, err)
		n, ok := v.Reset()
		require.True(t, ok)
		require.Equal(t, 7, n)
		require.False(t, v.Loaded())
	})
}
