package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"IPOWatcher/internal/app"
	"IPOWatcher/internal/config"
	"IPOWatcher/internal/logging"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("year", 0, "Corpus year to rebuild (default: current year)")
}

// serveCmd runs the API with the background corpus refresher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the IPO API",
	RunE:  handleServe,
}

// ingestCmd rebuilds one corpus year from the upstream site.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape, extract and index one corpus year",
	RunE:  handleIngest,
}

func handleServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func handleIngest(cmd *cobra.Command, args []string) error {
	year, _ := cmd.Flags().GetInt("year")
	if year == 0 {
		year = time.Now().Year()
	}

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Ingest(ctx, year)
}
