package slug

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"math/big"

	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/models"
)

// Alphabet est le jeu de 62 caractères utilisé pour les slugs.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

// ExistsFunc indique si un slug est déjà utilisé par un lien stocké.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Generator génère des slugs aléatoires et vérifie leur unicité auprès du store.
// Il utilise crypto/rand pour que les slugs ne soient ni prévisibles ni énumérables.
type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

// Option configure un Generator.
type Option func(*Generator)

// WithRandom remplace la source aléatoire (tests uniquement).
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// NewGenerator crée un générateur de slugs de la longueur donnée.
// La longueur doit être comprise entre 1 et models.MaxSlugLength, et maxAttempts au moins 1.
func NewGenerator(length, maxAttempts int, opts ...Option) (*Generator, error) {
	if length < 1 || length > models.MaxSlugLength {
		return nil, fmt.Errorf("slug length must be between 1 and %d, got %d", models.MaxSlugLength, length)
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("slug max attempts must be at least 1, got %d", maxAttempts)
	}
	g := &Generator{
		length:      length,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Length retourne la longueur des slugs produits.
func (g *Generator) Length() int {
	return g.length
}

// Candidate tire un slug aléatoire sans vérifier son unicité.
// Chaque caractère est tiré indépendamment et uniformément dans Alphabet.
func (g *Generator) Candidate() (string, error) {
	result := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(Alphabet)))

	for i := range result {
		n, err := rand.Int(g.random, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("error generating random number: %w", err)
		}
		result[i] = Alphabet[n.Int64()]
	}
	return string(result), nil
}

// Generate tire des candidats jusqu'à en trouver un que exists déclare libre.
// Au-delà de maxAttempts collisions, elle retourne ErrExhaustedSlugSpace.
// La vérification est en lecture seule : l'unicité définitive est garantie par l'index unique en base.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := g.Candidate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("database error checking slug uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}

		log.Printf("Slug '%s' already exists, retrying generation (%d/%d)...", candidate, attempt, g.maxAttempts)
	}

	return "", &apperrors.ErrExhaustedSlugSpace{Attempts: g.maxAttempts}
}
