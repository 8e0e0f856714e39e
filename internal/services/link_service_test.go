package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/axellelanca/quickpath/internal/clock"
	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/models"
	"github.com/axellelanca/quickpath/internal/repository"
	"github.com/axellelanca/quickpath/internal/services"
	"github.com/axellelanca/quickpath/internal/slug"
	"github.com/axellelanca/quickpath/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var startTime = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// scriptedGenerator retourne des slugs prédéfinis sans consulter le store,
// ce qui simule deux requêtes ayant tiré le même candidat en parallèle.
type scriptedGenerator struct {
	mu    sync.Mutex
	slugs []string
	calls int
}

func (g *scriptedGenerator) Generate(context.Context, slug.ExistsFunc) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slugs[len(g.slugs)-1]
	if g.calls < len(g.slugs) {
		s = g.slugs[g.calls]
	}
	g.calls++
	return s, nil
}

type fixture struct {
	db    *gorm.DB
	svc   *services.LinkService
	repo  *repository.GormLinkRepository
	clock *clock.Manual
}

func newFixture(t *testing.T, gen services.SlugGenerator, opts ...services.Option) fixture {
	t.Helper()
	db := testutils.NewTestDB(t)
	repo := repository.NewLinkRepository(db)
	clk := clock.NewManual(startTime)
	if gen == nil {
		g, err := slug.NewGenerator(slug.DefaultLength, slug.DefaultMaxAttempts)
		require.NoError(t, err)
		gen = g
	}
	return fixture{
		db:    db,
		svc:   services.NewLinkService(repo, gen, clk, opts...),
		repo:  repo,
		clock: clk,
	}
}

func TestCreateLink_Success(t *testing.T) {
	f := newFixture(t, nil)

	link, err := f.svc.CreateLink(context.Background(), "https://example.com", nil)
	require.NoError(t, err)

	assert.Len(t, link.Slug, 6)
	for _, c := range link.Slug {
		assert.True(t, strings.ContainsRune(slug.Alphabet, c))
	}
	assert.Equal(t, "https://example.com", link.OriginalURL)
	assert.Equal(t, startTime, link.CreatedAt)
	assert.Equal(t, int64(0), link.Clicks)
	assert.Nil(t, link.LastAccessed)
	assert.Nil(t, link.ExpiresAt)

	stored, err := f.repo.GetLinkBySlug(context.Background(), link.Slug)
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, stored.OriginalURL)
}

func TestCreateLink_SlugsAreUnique(t *testing.T) {
	f := newFixture(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		link, err := f.svc.CreateLink(context.Background(), "https://example.com/page", nil)
		require.NoError(t, err)
		assert.False(t, seen[link.Slug], "duplicate slug %s", link.Slug)
		seen[link.Slug] = true
	}
}

func TestCreateLink_InvalidURLs(t *testing.T) {
	f := newFixture(t, nil)

	invalid := []string{
		"",
		"notaurl",
		"example.com",
		"/relative/path",
		"ftp://example.com/file",
		"https://",
		"http://" + strings.Repeat("a", services.MaxURLLength),
	}

	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			_, err := f.svc.CreateLink(context.Background(), raw, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Link{}).Count(&count).Error)
	assert.Zero(t, count, "nothing must be persisted for invalid URLs")
}

func TestCreateLink_StoresExpiryInUTC(t *testing.T) {
	f := newFixture(t, nil)

	paris := time.FixedZone("CET", 3600)
	expiresAt := time.Date(2025, 2, 1, 10, 0, 0, 0, paris)

	link, err := f.svc.CreateLink(context.Background(), "https://example.com", &expiresAt)
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, time.UTC, link.ExpiresAt.Location())
	assert.True(t, expiresAt.Equal(*link.ExpiresAt))
}

func TestCreateLink_RetriesOnInsertConflict(t *testing.T) {
	gen := &scriptedGenerator{slugs: []string{"ABC123", "ABC123", "XYZ999"}}
	f := newFixture(t, gen)

	first, err := f.svc.CreateLink(context.Background(), "https://foo.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", first.Slug)

	second, err := f.svc.CreateLink(context.Background(), "https://bar.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "XYZ999", second.Slug)

	stored, err := f.repo.GetLinkBySlug(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "https://foo.com", stored.OriginalURL)
}

func TestCreateLink_FailsWhenConflictRetriesExhausted(t *testing.T) {
	gen := &scriptedGenerator{slugs: []string{"SAME01"}}
	f := newFixture(t, gen, services.WithConflictRetries(2))

	_, err := f.svc.CreateLink(context.Background(), "https://foo.com", nil)
	require.NoError(t, err)

	_, err = f.svc.CreateLink(context.Background(), "https://bar.com", nil)
	require.Error(t, err)

	var exhausted *apperrors.ErrExhaustedSlugSpace
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 4, gen.calls)
}

func TestCreateLink_ConcurrentSameCandidate(t *testing.T) {
	gen := &scriptedGenerator{slugs: []string{"RACE01", "RACE01", "RACE02"}}
	f := newFixture(t, gen)

	var wg sync.WaitGroup
	results := make([]*models.Link, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.CreateLink(context.Background(), "https://race.example", nil)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []string{"RACE01", "RACE02"}, []string{results[0].Slug, results[1].Slug})
}

func TestResolveAndVisit_CountsClicks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	link, err := f.svc.CreateLink(ctx, "https://example.com", nil)
	require.NoError(t, err)

	var previous time.Time
	for i := 1; i <= 5; i++ {
		f.clock.Advance(time.Second)

		target, err := f.svc.ResolveAndVisit(ctx, link.Slug)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", target)

		stats, err := f.svc.GetStats(ctx, link.Slug)
		require.NoError(t, err)
		assert.Equal(t, int64(i), stats.Clicks)
		require.NotNil(t, stats.LastAccessed)
		assert.False(t, stats.LastAccessed.Before(previous))
		assert.True(t, f.clock.Now().Equal(*stats.LastAccessed))
		previous = *stats.LastAccessed
	}
}

func TestResolveAndVisit_UnknownSlug(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ResolveAndVisit(context.Background(), "nope00")
	assert.ErrorIs(t, err, apperrors.ErrLinkNotFound)
}

func TestResolveAndVisit_ExpiredLink(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	past := startTime.Add(-time.Second)
	link, err := f.svc.CreateLink(ctx, "https://expired.example", &past)
	require.NoError(t, err)

	_, err = f.svc.ResolveAndVisit(ctx, link.Slug)
	assert.ErrorIs(t, err, apperrors.ErrLinkExpired)
	assert.NotErrorIs(t, err, apperrors.ErrLinkNotFound)

	stats, err := f.svc.GetStats(ctx, link.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Clicks)
	assert.Nil(t, stats.LastAccessed)
}

func TestResolveAndVisit_LinkExpiresOverTime(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	expiry := startTime.Add(time.Hour)
	link, err := f.svc.CreateLink(ctx, "https://soon.example", &expiry)
	require.NoError(t, err)

	_, err = f.svc.ResolveAndVisit(ctx, link.Slug)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ResolveAndVisit(ctx, link.Slug)
	require.NoError(t, err, "a link is still active at its exact expiry instant")

	f.clock.Advance(time.Microsecond)
	_, err = f.svc.ResolveAndVisit(ctx, link.Slug)
	assert.ErrorIs(t, err, apperrors.ErrLinkExpired)

	stats, err := f.svc.GetStats(ctx, link.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Clicks)
}

func TestGetStats_ReturnsPersistedValuesWithoutSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	expiry := startTime.Add(24 * time.Hour)
	link, err := f.svc.CreateLink(ctx, "https://example.com", &expiry)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		stats, err := f.svc.GetStats(ctx, link.Slug)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Clicks)
		assert.True(t, startTime.Equal(stats.CreatedAt))
		assert.Nil(t, stats.LastAccessed)
		require.NotNil(t, stats.ExpiresAt)
		assert.True(t, expiry.Equal(*stats.ExpiresAt))
	}
}

func TestGetStats_UnknownSlug(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetStats(context.Background(), "nope00")
	assert.ErrorIs(t, err, apperrors.ErrLinkNotFound)
}

// probingGenerator propose ses candidats dans l'ordre et garde le premier que exists déclare libre.
type probingGenerator struct {
	candidates []string
}

func (g *probingGenerator) Generate(ctx context.Context, exists slug.ExistsFunc) (string, error) {
	for _, c := range g.candidates {
		taken, err := exists(ctx, c)
		if err != nil {
			return "", err
		}
		if !taken {
			return c, nil
		}
	}
	return "", &apperrors.ErrExhaustedSlugSpace{Attempts: len(g.candidates)}
}

func TestCreateLink_SkipsReservedSlugs(t *testing.T) {
	f := newFixture(t, &probingGenerator{candidates: []string{"health", "links", "Zz9Yy8"}})

	link, err := f.svc.CreateLink(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "Zz9Yy8", link.Slug)
}

func TestCreateLink_PropagatesExhaustedSlugSpace(t *testing.T) {
	f := newFixture(t, &probingGenerator{candidates: []string{"health"}})

	_, err := f.svc.CreateLink(context.Background(), "https://example.com", nil)
	assert.True(t, apperrors.IsExhausted(err))
}
