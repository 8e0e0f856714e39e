package slug_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/slug"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neverTaken(context.Context, string) (bool, error) { return false, nil }

func TestNewGenerator_RejectsInvalidSettings(t *testing.T) {
	_, err := slug.NewGenerator(0, 5)
	assert.Error(t, err)

	_, err = slug.NewGenerator(9, 5)
	assert.Error(t, err)

	_, err = slug.NewGenerator(6, 0)
	assert.Error(t, err)

	g, err := slug.NewGenerator(8, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Length())
}

func TestGenerate_ProducesFixedLengthAlphanumeric(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, slug.DefaultMaxAttempts)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		s, err := g.Generate(context.Background(), neverTaken)
		require.NoError(t, err)
		assert.Len(t, s, 6)
		for _, c := range s {
			assert.True(t, strings.ContainsRune(slug.Alphabet, c), "slug %q contains invalid char %q", s, string(c))
		}
	}
}

func TestGenerate_ProducesUniqueSlugsStatistically(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, slug.DefaultMaxAttempts)
	require.NoError(t, err)

	seen := make(map[string]bool)
	count := 10000
	for i := 0; i < count; i++ {
		s, err := g.Generate(context.Background(), neverTaken)
		require.NoError(t, err)
		seen[s] = true
	}

	// 62^6 combinaisons : 10000 tirages ne doivent pas entrer en collision.
	assert.Len(t, seen, count)
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, 5)
	require.NoError(t, err)

	calls := 0
	exists := func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	s, err := g.Generate(context.Background(), exists)
	require.NoError(t, err)
	assert.Len(t, s, 6)
	assert.Equal(t, 3, calls)
}

func TestGenerate_FailsWhenSlugSpaceExhausted(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, 4)
	require.NoError(t, err)

	calls := 0
	exists := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}

	_, err = g.Generate(context.Background(), exists)
	require.Error(t, err)

	var exhausted *apperrors.ErrExhaustedSlugSpace
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, 4, calls)
}

func TestGenerate_PropagatesStoreErrors(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, 5)
	require.NoError(t, err)

	boom := errors.New("connection refused")
	_, err = g.Generate(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerate_StopsOnCancelledContext(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, neverTaken)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandidate_FailsWhenRandomSourceIsEmpty(t *testing.T) {
	g, err := slug.NewGenerator(slug.DefaultLength, 5, slug.WithRandom(bytes.NewReader(nil)))
	require.NoError(t, err)

	_, err = g.Candidate()
	assert.Error(t, err)
}

func TestCandidate_IsDeterministicForAFixedSource(t *testing.T) {
	source := bytes.Repeat([]byte{0x00}, 64)

	g1, err := slug.NewGenerator(6, 1, slug.WithRandom(bytes.NewReader(source)))
	require.NoError(t, err)
	g2, err := slug.NewGenerator(6, 1, slug.WithRandom(bytes.NewReader(source)))
	require.NoError(t, err)

	a, err := g1.Candidate()
	require.NoError(t, err)
	b, err := g2.Candidate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "AAAAAA", a)
}
