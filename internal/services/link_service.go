package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/axellelanca/quickpath/internal/clock"
	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/metrics"
	"github.com/axellelanca/quickpath/internal/models"
	"github.com/axellelanca/quickpath/internal/repository"
	"github.com/axellelanca/quickpath/internal/slug"
)

// MaxURLLength est la longueur maximale acceptée pour une URL de destination.
const MaxURLLength = 2048

// DefaultConflictRetries est le nombre de nouvelles générations de slug tentées quand
// l'insertion est rejetée par l'index unique.
const DefaultConflictRetries = 1

// reservedSlugs sont des chemins servis par d'autres routes à la racine ;
// un lien portant l'un de ces slugs serait inaccessible.
var reservedSlugs = map[string]bool{
	"health":  true,
	"metrics": true,
	"links":   true,
}

// SlugGenerator produit un slug libre selon exists.
// *slug.Generator l'implémente ; les tests peuvent fournir des slugs scriptés.
type SlugGenerator interface {
	Generate(ctx context.Context, exists slug.ExistsFunc) (string, error)
}

// LinkService fournit la logique métier des liens : création, statistiques et redirection.
// Le repository est injecté à la construction, il n'y a aucun état global.
type LinkService struct {
	linkRepo        repository.LinkRepository
	generator       SlugGenerator
	clock           clock.Clock
	validate        *validator.Validate
	conflictRetries int
}

// Option configure un LinkService.
type Option func(*LinkService)

// WithConflictRetries fixe le nombre de régénérations après un conflit d'insertion.
func WithConflictRetries(n int) Option {
	return func(s *LinkService) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

// NewLinkService crée et retourne une nouvelle instance de LinkService.
func NewLinkService(linkRepo repository.LinkRepository, generator SlugGenerator, clk clock.Clock, opts ...Option) *LinkService {
	s := &LinkService{
		linkRepo:        linkRepo,
		generator:       generator,
		clock:           clk,
		validate:        validator.New(),
		conflictRetries: DefaultConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now retourne l'heure courante en UTC, tronquée à la microseconde pour être
// restituée à l'identique par SQLite comme par PostgreSQL.
func (s *LinkService) now() time.Time {
	return normalize(s.clock.Now())
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// ValidateURL vérifie que rawURL est une URL absolue http(s) bien formée.
func (s *LinkService) ValidateURL(rawURL string) error {
	invalid := func(reason string) error {
		return &apperrors.ValidationError{Field: "url", Value: rawURL, Reason: reason}
	}

	if rawURL == "" {
		return invalid("url is required")
	}
	if len(rawURL) > MaxURLLength {
		return invalid(fmt.Sprintf("url exceeds maximum length of %d characters", MaxURLLength))
	}
	if err := s.validate.Var(rawURL, "url"); err != nil {
		return invalid("not a valid absolute URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return invalid("not a valid absolute URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid("URL scheme must be http or https")
	}
	if parsed.Host == "" {
		return invalid("URL must have a host")
	}
	return nil
}

// CreateLink crée un nouveau lien raccourci vers originalURL.
// expiresAt est optionnel ; une date déjà passée est acceptée et donne un lien immédiatement expiré.
// Si l'insertion entre en conflit avec un slug créé entre-temps par une autre requête,
// un nouveau slug est généré (conflictRetries fois au plus).
func (s *LinkService) CreateLink(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.Link, error) {
	if err := s.ValidateURL(originalURL); err != nil {
		return nil, err
	}

	var expiry *time.Time
	if expiresAt != nil {
		e := normalize(*expiresAt)
		expiry = &e
	}

	attempts := s.conflictRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		code, err := s.generator.Generate(ctx, s.slugTaken)
		if err != nil {
			return nil, fmt.Errorf("error generating slug: %w", err)
		}

		link := &models.Link{
			Slug:        code,
			OriginalURL: originalURL,
			CreatedAt:   s.now(),
			Clicks:      0,
			ExpiresAt:   expiry,
		}

		err = s.linkRepo.CreateLink(ctx, link)
		if err == nil {
			metrics.LinksCreated.Inc()
			log.Printf("Link created: %s -> %s", link.Slug, link.OriginalURL)
			return link, nil
		}

		if errors.Is(err, apperrors.ErrSlugConflict) {
			metrics.SlugConflicts.Inc()
			log.Printf("Slug '%s' was taken concurrently, regenerating (%d/%d)...", code, attempt, attempts)
			continue
		}

		return nil, fmt.Errorf("error creating link in database: %w", err)
	}

	return nil, &apperrors.ErrExhaustedSlugSpace{Attempts: attempts}
}

// slugTaken considère les slugs réservés comme déjà pris.
func (s *LinkService) slugTaken(ctx context.Context, code string) (bool, error) {
	if reservedSlugs[code] {
		return true, nil
	}
	return s.linkRepo.SlugExists(ctx, code)
}

// GetStats retourne les statistiques d'un lien sans le modifier.
// Les liens expirés conservent leurs statistiques.
func (s *LinkService) GetStats(ctx context.Context, code string) (*models.Stats, error) {
	link, err := s.linkRepo.GetLinkBySlug(ctx, code)
	if err != nil {
		return nil, err
	}
	stats := link.Stats()
	return &stats, nil
}

// ResolveAndVisit retourne l'URL de destination d'un slug actif et comptabilise la visite.
// Retourne ErrLinkNotFound pour un slug inconnu et ErrLinkExpired pour un lien expiré,
// sans aucune modification dans ces deux cas.
func (s *LinkService) ResolveAndVisit(ctx context.Context, code string) (string, error) {
	link, err := s.linkRepo.RecordVisit(ctx, code, s.now())
	switch {
	case err == nil:
		metrics.Redirects.WithLabelValues(metrics.RedirectOK).Inc()
		return link.OriginalURL, nil
	case errors.Is(err, apperrors.ErrLinkNotFound):
		metrics.Redirects.WithLabelValues(metrics.RedirectNotFound).Inc()
	case errors.Is(err, apperrors.ErrLinkExpired):
		metrics.Redirects.WithLabelValues(metrics.RedirectExpired).Inc()
	}
	return "", err
}

// Ping vérifie que le store répond (utilisé par /health).
func (s *LinkService) Ping(ctx context.Context) error {
	return s.linkRepo.Ping(ctx)
}
