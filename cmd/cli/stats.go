package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	cmd2 "github.com/axellelanca/quickpath/cmd"
	apperrors "github.com/axellelanca/quickpath/internal/errors"
)

// slugFlag stockera la valeur du flag --slug
var slugFlag string

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Affiche les statistiques d'un lien court.",
	Long: `Cette commande affiche le nombre de clics, la date de création,
la date de dernier accès et la date d'expiration d'un lien court.

Exemple:
  quickpath stats --slug="xyz123"`,
	Run: func(cmd *cobra.Command, args []string) {
		db, closeDB := cmd2.OpenDatabase()
		defer closeDB()

		linkService := cmd2.NewLinkService(db)

		stats, err := linkService.GetStats(context.Background(), slugFlag)
		if err != nil {
			if errors.Is(err, apperrors.ErrLinkNotFound) {
				log.Fatalf("FATAL: Slug '%s' introuvable", slugFlag)
			}
			log.Fatalf("FATAL: Erreur lors de la récupération des statistiques: %v", err)
		}

		fmt.Printf("Statistiques pour le slug: %s\n", slugFlag)
		fmt.Printf("Total de clics: %d\n", stats.Clicks)
		fmt.Printf("Créé le: %s\n", stats.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Dernier accès: %s\n", formatOptional(stats.LastAccessed))
		fmt.Printf("Expire le: %s\n", formatOptional(stats.ExpiresAt))
	},
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func init() {
	StatsCmd.Flags().StringVarP(&slugFlag, "slug", "s", "", "Le slug dont on veut les statistiques")
	_ = StatsCmd.MarkFlagRequired("slug")

	cmd2.RootCmd.AddCommand(StatsCmd)
}
