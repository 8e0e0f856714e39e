package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // Driver SQLite pur Go pour GORM (base embarquée par défaut)
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/axellelanca/quickpath/internal/models"
)

// DefaultURL est la chaîne de connexion utilisée quand aucune n'est configurée :
// un fichier SQLite local dans le répertoire courant.
const DefaultURL = "sqlite:///./shortener.db"

// sqliteBusyTimeout laisse SQLite attendre un verrou plutôt qu'échouer immédiatement.
const sqliteBusyTimeout = "_pragma=busy_timeout(5000)"

// Dialect identifie le moteur choisi à partir de la chaîne de connexion.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Resolve détermine le moteur et la DSN effective à partir d'une chaîne de connexion.
// Les URLs postgres://, postgresql:// et les DSN clé=valeur contenant host= désignent PostgreSQL ;
// tout le reste est un chemin SQLite, le préfixe sqlite:/// étant retiré.
func Resolve(url string) (Dialect, string) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}

	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, url
	case strings.Contains(url, "host="):
		return Postgres, url
	}

	dsn := strings.TrimPrefix(url, "sqlite:///")
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if !strings.Contains(dsn, "_pragma=busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqliteBusyTimeout
	}
	return SQLite, dsn
}

// Open ouvre la base désignée par url et retourne la connexion GORM.
// TranslateError est activé pour que les violations d'index unique remontent en gorm.ErrDuplicatedKey
// quel que soit le moteur.
func Open(url string, silent bool) (*gorm.DB, error) {
	dialect, dsn := Resolve(url)

	logLevel := logger.Warn
	if silent {
		logLevel = logger.Silent
	}
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}

	var dialector gorm.Dialector
	switch dialect {
	case Postgres:
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dialect == SQLite {
		// SQLite n'accepte qu'un seul écrivain à la fois.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	log.Printf("Database connection established (%s)", dialect)
	return db, nil
}

// Migrate crée ou met à jour la table 'links' et son index unique sur le slug.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Link{}); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

// Close ferme la connexion sous-jacente.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
