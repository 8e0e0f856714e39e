package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axellelanca/quickpath/internal/config"
	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/middleware"
	"github.com/axellelanca/quickpath/internal/services"
)

// WelcomeMessage est renvoyé par GET /.
const WelcomeMessage = "Welcome to QuickPath, the URL shortener app!"

// SetupRoutes configure toutes les routes de l'API Gin et injecte les dépendances nécessaires.
// limiter peut être nil si le rate limiting est désactivé.
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, cfg *config.Config, limiter *middleware.IPRateLimiter) {
	router.GET("/", WelcomeHandler)
	router.GET("/health", HealthCheckHandler(linkService))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	createHandlers := []gin.HandlerFunc{CreateShortLinkHandler(linkService, cfg)}
	if limiter != nil {
		createHandlers = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(limiter)}, createHandlers...)
	}
	router.POST("/links", createHandlers...)
	router.GET("/links/:slug", GetLinkStatsHandler(linkService))

	// Route de redirection au niveau racine pour les slugs
	router.GET("/:slug", RedirectHandler(linkService))
}

// NewRouter crée le moteur Gin avec les middlewares communs et toutes les routes.
func NewRouter(linkService *services.LinkService, cfg *config.Config, limiter *middleware.IPRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), middleware.Metrics())
	SetupRoutes(router, linkService, cfg, limiter)
	return router
}

// WelcomeHandler gère la route racine.
func WelcomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": WelcomeMessage})
}

// HealthCheckHandler gère la route /health : 200 si la base répond, 503 sinon.
func HealthCheckHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := linkService.Ping(ctx); err != nil {
			log.Printf("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// CreateLinkRequest représente le corps de la requête JSON pour la création d'un lien.
// L'URL est validée par le service, pas par les tags de binding, pour que toute URL
// invalide produise la même réponse 422.
type CreateLinkRequest struct {
	URL       string  `json:"url"`
	ExpiresAt *string `json:"expires_at,omitempty"` // Horodatage ISO-8601 optionnel
}

// CreateLinkResponse est renvoyé après la création d'un lien.
type CreateLinkResponse struct {
	Slug     string `json:"slug"`
	ShortURL string `json:"short_url"`
}

// LinkStatsResponse est renvoyé par GET /links/:slug.
type LinkStatsResponse struct {
	Clicks       int64      `json:"clicks"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed *time.Time `json:"last_accessed"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// CreateShortLinkHandler gère la création d'une URL courte.
func CreateShortLinkHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		var expiresAt *time.Time
		if req.ExpiresAt != nil && strings.TrimSpace(*req.ExpiresAt) != "" {
			t, err := ParseTimestamp(*req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			expiresAt = &t
		}

		link, err := linkService.CreateLink(c.Request.Context(), req.URL, expiresAt)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateLinkResponse{
			Slug:     link.Slug,
			ShortURL: cfg.Server.BaseURL + "/" + link.Slug,
		})
	}
}

// RedirectHandler redirige un slug actif vers son URL d'origine (301) et comptabilise la visite.
// Un slug inconnu donne 404, un lien expiré 410.
func RedirectHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")

		target, err := linkService.ResolveAndVisit(c.Request.Context(), slug)
		if err != nil {
			writeError(c, err)
			return
		}

		// La redirection ne doit pas être mise en cache : chaque visite passe par le compteur.
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusMovedPermanently, target)
	}
}

// GetLinkStatsHandler gère la récupération des statistiques pour un lien spécifique.
func GetLinkStatsHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")

		stats, err := linkService.GetStats(c.Request.Context(), slug)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, LinkStatsResponse{
			Clicks:       stats.Clicks,
			CreatedAt:    stats.CreatedAt,
			LastAccessed: stats.LastAccessed,
			ExpiresAt:    stats.ExpiresAt,
		})
	}
}

// writeError traduit les erreurs métier en codes HTTP.
func writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Slug not found"})
	case errors.Is(err, apperrors.ErrLinkExpired):
		c.JSON(http.StatusGone, gin.H{"error": "This link has expired"})
	default:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// timestampLayouts liste les formats ISO-8601 acceptés pour expires_at.
// Les horodatages sans fuseau sont interprétés en UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp analyse un horodatage ISO-8601.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &apperrors.ValidationError{Field: "expires_at", Value: raw, Reason: "not an ISO-8601 timestamp"}
}
