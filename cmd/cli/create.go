package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	cmd2 "github.com/axellelanca/quickpath/cmd"
	"github.com/axellelanca/quickpath/internal/api"
	apperrors "github.com/axellelanca/quickpath/internal/errors"
)

// urlFlag et expiresAtFlag stockent les valeurs des flags --url et --expires-at
var (
	urlFlag       string
	expiresAtFlag string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée une URL courte à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL fournie et affiche le slug généré.

Exemple:
  quickpath create --url="https://www.google.com/search?q=go+lang"
  quickpath create --url="https://example.com" --expires-at="2030-01-01T00:00:00Z"`,
	Run: func(cmd *cobra.Command, args []string) {
		var expiresAt *time.Time
		if expiresAtFlag != "" {
			t, err := api.ParseTimestamp(expiresAtFlag)
			if err != nil {
				log.Fatalf("FATAL: %v", err)
			}
			expiresAt = &t
		}

		db, closeDB := cmd2.OpenDatabase()
		defer closeDB()

		linkService := cmd2.NewLinkService(db)

		link, err := linkService.CreateLink(context.Background(), urlFlag, expiresAt)
		if err != nil {
			if apperrors.IsValidation(err) {
				log.Fatalf("FATAL: URL invalide: %v", err)
			}
			log.Fatalf("FATAL: Échec de la création du lien court: %v", err)
		}

		fmt.Printf("URL courte créée avec succès:\n")
		fmt.Printf("Slug: %s\n", link.Slug)
		fmt.Printf("URL complète: %s/%s\n", cmd2.Cfg.Server.BaseURL, link.Slug)
		if link.ExpiresAt != nil {
			fmt.Printf("Expire le: %s\n", link.ExpiresAt.Format(time.RFC3339))
		}
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "L'URL longue à raccourcir")
	CreateCmd.Flags().StringVarP(&expiresAtFlag, "expires-at", "e", "", "Date d'expiration ISO-8601 (optionnelle)")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd2.RootCmd.AddCommand(CreateCmd)
}
