package config

import (
	"errors"
	"fmt"
	"log" // Pour logger les informations ou erreurs de chargement de config
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper" // La bibliothèque pour la gestion de configuration

	"github.com/axellelanca/quickpath/internal/models"
)

// Config est la structure principale qui mappe l'intégralité de la configuration de l'application.
// Les tags `mapstructure` sont utilisés par Viper pour mapper les clés du fichier de config
// (ou des variables d'environnement) aux champs de la structure Go.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Slug        SlugConfig        `mapstructure:"slug"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig contient la configuration du serveur web Gin.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	BaseURL                string `mapstructure:"base_url"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// DatabaseConfig contient l'unique chaîne de connexion à la base.
// Variable d'environnement : DATABASE_URL.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// SlugConfig contient les paramètres de génération des slugs.
type SlugConfig struct {
	Length          int `mapstructure:"length"`           // Longueur des slugs générés (1 à 8)
	MaxAttempts     int `mapstructure:"max_attempts"`     // Tirages maximum avant ErrExhaustedSlugSpace
	ConflictRetries int `mapstructure:"conflict_retries"` // Régénérations après un conflit à l'insertion
}

// RateLimiterConfig contient la configuration du rate limiting de la création de liens.
type RateLimiterConfig struct {
	Enabled       bool `mapstructure:"enabled"`        // Activer ou désactiver le rate limiting
	MaxRequests   int  `mapstructure:"max_requests"`   // Nombre maximum de requêtes par IP
	WindowMinutes int  `mapstructure:"window_minutes"` // Fenêtre de temps en minutes
}

// LogConfig contient la configuration de la rotation du fichier de log.
// Si File est vide, les logs ne vont que sur la sortie standard.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// LoadConfig charge la configuration de l'application en utilisant Viper.
// Ordre de priorité : variables d'environnement (éventuellement issues d'un fichier .env),
// puis fichier 'config.yaml' dans 'configs/' ou '.', puis valeurs par défaut.
func LoadConfig() (*Config, error) {
	// Un fichier .env absent n'est pas une erreur (cas de la production).
	if err := godotenv.Load(); err == nil {
		log.Println("Fichier .env chargé.")
	}

	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// server.port est lu depuis SERVER_PORT, database.url depuis DATABASE_URL, etc.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("Fichier de configuration non trouvé. Utilisation des valeurs par défaut.")
		} else {
			return nil, fmt.Errorf("erreur lors de la lecture du fichier de configuration: %w", err)
		}
	} else {
		log.Printf("Fichier de configuration chargé: %s", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("erreur lors du démappage de la configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded: Server Port=%d, Slug Length=%d, Rate Limiter=%t",
		cfg.Server.Port, cfg.Slug.Length, cfg.RateLimiter.Enabled)

	return &cfg, nil
}

// setDefaults définit les valeurs utilisées quand ni le fichier ni l'environnement ne fournissent la clé.
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("database.url", "sqlite:///./shortener.db")
	viper.SetDefault("slug.length", 6)
	viper.SetDefault("slug.max_attempts", 10)
	viper.SetDefault("slug.conflict_retries", 1)
	viper.SetDefault("rate_limiter.enabled", true)
	viper.SetDefault("rate_limiter.max_requests", 10)
	viper.SetDefault("rate_limiter.window_minutes", 1)
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)
}

// Validate vérifie la cohérence des valeurs chargées.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Slug.Length < 1 || c.Slug.Length > models.MaxSlugLength {
		return fmt.Errorf("slug.length must be between 1 and %d, got %d", models.MaxSlugLength, c.Slug.Length)
	}
	if c.Slug.MaxAttempts < 1 {
		return fmt.Errorf("slug.max_attempts must be at least 1, got %d", c.Slug.MaxAttempts)
	}
	if c.Slug.ConflictRetries < 0 {
		return fmt.Errorf("slug.conflict_retries must not be negative, got %d", c.Slug.ConflictRetries)
	}
	if c.RateLimiter.Enabled && (c.RateLimiter.MaxRequests < 1 || c.RateLimiter.WindowMinutes < 1) {
		return errors.New("rate_limiter.max_requests and rate_limiter.window_minutes must be positive")
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	return nil
}
