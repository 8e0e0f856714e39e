package middleware

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter gère le rate limiting par adresse IP.
// Il limite le nombre de liens qu'une même IP peut créer dans une fenêtre de temps donnée.
type IPRateLimiter struct {
	ips        map[string]*IPLimitInfo // Map des IPs avec leurs informations de limitation
	mu         sync.Mutex              // Protège l'accès concurrent à la map
	maxRequest int                     // Nombre maximum de requêtes autorisées
	window     time.Duration           // Fenêtre de temps pour le rate limiting
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// IPLimitInfo contient les informations de limitation pour une IP spécifique.
type IPLimitInfo struct {
	count      int       // Nombre de requêtes effectuées dans la fenêtre actuelle
	resetTime  time.Time // Moment où le compteur sera réinitialisé
	lastAccess time.Time // Dernière fois que cette IP a fait une requête
}

// NewIPRateLimiter crée une nouvelle instance de rate limiter et lance le nettoyage périodique.
// Stop doit être appelé pour arrêter la goroutine de nettoyage.
func NewIPRateLimiter(maxRequest int, window time.Duration) *IPRateLimiter {
	limiter := newIPRateLimiter(maxRequest, window, time.Now)
	go limiter.cleanupLoop(10 * time.Minute)
	return limiter
}

func newIPRateLimiter(maxRequest int, window time.Duration, now func() time.Time) *IPRateLimiter {
	return &IPRateLimiter{
		ips:        make(map[string]*IPLimitInfo),
		maxRequest: maxRequest,
		window:     window,
		now:        now,
		stop:       make(chan struct{}),
	}
}

// Stop arrête la goroutine de nettoyage. Peut être appelé plusieurs fois.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *IPRateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			tracked := rl.cleanup()
			log.Printf("[RATE LIMITER] Nettoyage effectué. Nombre d'IPs suivies: %d", tracked)
		}
	}
}

// cleanup supprime les IPs inactives depuis plus de deux fenêtres et retourne le nombre d'IPs restantes.
func (rl *IPRateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, info := range rl.ips {
		if now.Sub(info.lastAccess) > rl.window*2 {
			delete(rl.ips, ip)
		}
	}
	return len(rl.ips)
}

// allow vérifie si une IP est autorisée à faire une requête et met à jour son compteur.
// Retourne la décision, le nombre de requêtes restantes et le moment de réinitialisation.
func (rl *IPRateLimiter) allow(ip string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	info, exists := rl.ips[ip]
	if !exists || now.After(info.resetTime) {
		// Première requête de cette IP, ou fenêtre expirée
		info = &IPLimitInfo{resetTime: now.Add(rl.window)}
		rl.ips[ip] = info
	}
	info.lastAccess = now

	if info.count >= rl.maxRequest {
		log.Printf("[RATE LIMITER] IP %s a dépassé la limite (%d requêtes en %v)", ip, rl.maxRequest, rl.window)
		return false, 0, info.resetTime
	}

	info.count++
	return true, rl.maxRequest - info.count, info.resetTime
}

// RateLimitMiddleware crée un middleware Gin pour le rate limiting par IP.
// Ce middleware doit être appliqué aux routes que vous souhaitez protéger.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, remaining, resetTime := limiter.allow(ip)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.maxRequest))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			secondsUntilReset := int(resetTime.Sub(limiter.now()).Seconds())
			c.Header("Retry-After", strconv.Itoa(secondsUntilReset))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests, please retry later",
				"retry_after": secondsUntilReset,
			})
			return
		}

		c.Next()
	}
}
