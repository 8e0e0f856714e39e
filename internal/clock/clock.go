package clock

import (
	"sync"
	"time"
)

// Clock fournit l'heure courante au service.
// L'abstraction permet de tester l'expiration sans time.Sleep.
type Clock interface {
	Now() time.Time
}

// Real utilise l'horloge système.
type Real struct{}

// Now retourne l'heure système.
func (Real) Now() time.Time {
	return time.Now()
}

// Manual est une horloge contrôlable, utilisée dans les tests.
type Manual struct {
	mu      sync.Mutex
	current time.Time
}

// NewManual crée une horloge fixée à t.
func NewManual(t time.Time) *Manual {
	return &Manual{current: t}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance avance l'horloge de d.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set place l'horloge à t.
func (c *Manual) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
