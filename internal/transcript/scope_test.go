package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoize(t *testing.T) {
	t.Run("once per scope", func(t *testing.T) {
		ctx := withAttemptScope(context.Background())
		n := 0
		fn := func() (string, error) { n++; return "tracks", nil }

		for range 3 {
			v, err := Memoize(ctx, "k", fn)
			require.NoError(t, err)
			assert.Equal(t, "tracks", v)
		}
		assert.Equal(t, 1, n)
	})

	t.Run("errors are kept", func(t *testing.T) {
		ctx := withAttemptScope(context.Background())
		n := 0
		fn := func() ([]int, error) { n++; return nil, ErrTranscriptDisabled }

		_, err := Memoize(ctx, "k", fn)
		require.ErrorIs(t, err, ErrTranscriptDisabled)
		_, err = Memoize(ctx, "k", fn)
		require.ErrorIs(t, err, ErrTranscriptDisabled)
		assert.Equal(t, 1, n)
	})

	t.Run("without scope", func(t *testing.T) {
		n := 0
		fn := func() (int, error) { n++; return n, nil }
		Memoize(context.Background(), "k", fn)
		v, _ := Memoize(context.Background(), "k", fn)
		assert.Equal(t, 2, v)
	})
}

func TestFetchScopesLookupsPerAttempt(t *testing.T) {
	lookups := 0
	p := ProviderFunc(func(ctx context.Context, videoID, lang string) ([]Segment, error) {
		_, err := Memoize(ctx, "lookup:"+videoID, func() (struct{}, error) {
			lookups++
			return struct{}{}, errors.New("upstream failed")
		})
		return nil, err
	})
	f := NewFetcher(p, fastPolicy(2), []string{"en", "en-US", "en-GB", "any"})

	_, err := f.Fetch(context.Background(), "vid")
	require.Error(t, err)
	assert.Equal(t, 2, lookups, "one lookup per attempt")
}
