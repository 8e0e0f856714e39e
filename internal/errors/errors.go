package errors

import (
	stderrors "errors"
	"fmt"
)

// Erreurs sentinelles du cycle de vie d'un lien.
// Elles sont comparées avec errors.Is, y compris lorsqu'elles sont enveloppées par fmt.Errorf("%w").
var (
	// ErrLinkNotFound est retournée quand aucun lien ne correspond au slug demandé.
	ErrLinkNotFound = stderrors.New("link not found")

	// ErrLinkExpired est retournée quand le lien existe mais que sa date d'expiration est dépassée.
	// Distincte de ErrLinkNotFound : 410 plutôt que 404.
	ErrLinkExpired = stderrors.New("link has expired")

	// ErrSlugConflict est retournée par le repository quand l'index unique sur le slug rejette une insertion.
	ErrSlugConflict = stderrors.New("slug already exists")
)

// ValidationError est retournée quand une donnée fournie par l'appelant est invalide.
// Elle n'est jamais retentée.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ErrExhaustedSlugSpace est retournée quand la génération d'un slug unique échoue
// après le nombre maximum de tentatives.
type ErrExhaustedSlugSpace struct {
	Attempts int
}

func (e *ErrExhaustedSlugSpace) Error() string {
	return fmt.Sprintf("unable to generate a unique slug after %d attempts", e.Attempts)
}

// IsValidation indique si err (ou une erreur qu'elle enveloppe) est une ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return stderrors.As(err, &v)
}

// IsExhausted indique si err (ou une erreur qu'elle enveloppe) est une ErrExhaustedSlugSpace.
func IsExhausted(err error) bool {
	var e *ErrExhaustedSlugSpace
	return stderrors.As(err, &e)
}
