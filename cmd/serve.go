package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"github.com/kozaktomas/product-matcher/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Product Matcher web server.
The server exposes the product catalog API, the visual search endpoint
(POST /search-image) and the stored product images under /uploads/.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
}

// applyServeFlags lets explicit flags override the configured host and port.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	log := newLogger(cfg)
	defer log.Sync()

	if err := searchOptions(cfg).Params.Validate(); err != nil {
		return fmt.Errorf("invalid matcher configuration: %w", err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}

	fmt.Printf("Connecting to %s catalog...\n", cfg.Database.Driver)
	catalogDB, err := openCatalog(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer catalogDB.Close()
	summary, err := catalogSummary(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Using %s, files under %s\n", summary, store.Root())

	server := web.NewServer(cfg, store, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Product Matcher on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
