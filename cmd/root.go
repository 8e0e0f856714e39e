package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/axellelanca/quickpath/internal/clock"
	"github.com/axellelanca/quickpath/internal/config"
	"github.com/axellelanca/quickpath/internal/database"
	"github.com/axellelanca/quickpath/internal/logging"
	"github.com/axellelanca/quickpath/internal/repository"
	"github.com/axellelanca/quickpath/internal/services"
	"github.com/axellelanca/quickpath/internal/slug"
)

// Cfg est la configuration chargée avant l'exécution de chaque sous-commande.
var Cfg *config.Config

var logCloser io.Closer

// RootCmd est la commande racine de l'application.
// Les sous-commandes (run-server, create, stats, migrate) s'y enregistrent dans leur init().
var RootCmd = &cobra.Command{
	Use:   "quickpath",
	Short: "QuickPath, un service de raccourcissement d'URLs.",
	Long: `QuickPath crée des liens courts, redirige les visiteurs vers l'URL d'origine,
compte les clics et gère l'expiration des liens.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("impossible de charger la configuration: %w", err)
		}
		Cfg = cfg
		_, logCloser = logging.Setup(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage: true,
}

// Execute exécute la commande racine. Appelée une seule fois par main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// OpenDatabase ouvre et migre la base configurée, pour les sous-commandes.
// La fonction retournée ferme la connexion.
func OpenDatabase() (*gorm.DB, func()) {
	if Cfg == nil {
		log.Fatalf("FATAL: La configuration n'a pas été chargée correctement.")
	}

	db, err := database.Open(Cfg.Database.URL, false)
	if err != nil {
		log.Fatalf("FATAL: Impossible de se connecter à la base de données: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	return db, func() {
		if err := database.Close(db); err != nil {
			log.Printf("Attention: Erreur lors de la fermeture de la connexion: %v", err)
		}
	}
}

// NewLinkService construit le LinkService à partir de la configuration chargée.
func NewLinkService(db *gorm.DB) *services.LinkService {
	generator, err := slug.NewGenerator(Cfg.Slug.Length, Cfg.Slug.MaxAttempts)
	if err != nil {
		log.Fatalf("FATAL: Configuration des slugs invalide: %v", err)
	}

	linkRepo := repository.NewLinkRepository(db)
	return services.NewLinkService(linkRepo, generator, clock.Real{},
		services.WithConflictRetries(Cfg.Slug.ConflictRetries))
}
