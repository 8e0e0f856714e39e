package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	cmd2 "github.com/axellelanca/quickpath/cmd"
	"github.com/axellelanca/quickpath/internal/api"
	"github.com/axellelanca/quickpath/internal/middleware"
)

// RunServerCmd représente la commande 'run-server'.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur HTTP de redirection et l'API de gestion des liens.",
	Long: `Cette commande migre la base de données, initialise les services
et démarre le serveur web Gin. Elle s'arrête proprement sur SIGINT ou SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := cmd2.Cfg

		db, closeDB := cmd2.OpenDatabase()
		defer closeDB()

		linkService := cmd2.NewLinkService(db)

		var limiter *middleware.IPRateLimiter
		if cfg.RateLimiter.Enabled {
			limiter = middleware.NewIPRateLimiter(cfg.RateLimiter.MaxRequests,
				time.Duration(cfg.RateLimiter.WindowMinutes)*time.Minute)
			defer limiter.Stop()
		}

		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter(linkService, cfg, limiter)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverErr := make(chan error, 1)
		go func() {
			log.Printf("Serveur démarré sur %s (base URL %s)", srv.Addr, cfg.Server.BaseURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case err := <-serverErr:
			if err != nil {
				log.Printf("ERREUR: Le serveur s'est arrêté: %v", err)
				return
			}
		case <-ctx.Done():
			log.Println("Signal d'arrêt reçu, arrêt du serveur...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Attention: Erreur lors de l'arrêt du serveur: %v", err)
		}
		log.Println("Serveur arrêté.")
	},
}

func init() {
	cmd2.RootCmd.AddCommand(RunServerCmd)
}
