package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vialabs/tronbridge/internal/admin"
	"github.com/vialabs/tronbridge/internal/audit"
	"github.com/vialabs/tronbridge/internal/config"
	"github.com/vialabs/tronbridge/internal/metrics"
	"github.com/vialabs/tronbridge/internal/proxy"
	"github.com/vialabs/tronbridge/internal/rewrite"
)

var (
	serveListen string
	serveTarget string
	serveAdmin  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy (and the admin server, when configured)",
	Long: `Start the HTTP proxy. POST / is interpreted as JSON-RPC and run
through the rewrite rules; all other traffic is relayed opaquely to the
target. Flags override config file values, which override TRONBRIDGE_*
environment variables.`,
	Example: `  tronbridge serve --target https://api.trongrid.io/jsonrpc --listen :8545
  tronbridge serve -c tronbridge.yaml --admin 127.0.0.1:9100`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default "+config.DefaultListen+")")
	serveCmd.Flags().StringVar(&serveTarget, "target", "", "upstream JSON-RPC URL")
	serveCmd.Flags().StringVar(&serveAdmin, "admin", "", "admin server address (health, metrics, exchange API)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Local .env files may carry the TRONBRIDGE_* variables.
	_ = godotenv.Load()

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Target == "" {
		return fmt.Errorf("no target: set --target, the config file, or TRONBRIDGE_TARGET")
	}

	store, err := audit.NewJSONLStore(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("creating exchange log: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	p, err := proxy.NewProxy(cfg.Target, rewrite.NewRegistry(), logger, proxy.Options{
		Store:           store,
		Metrics:         m,
		UpstreamTimeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if cfg.AdminAddr != "" {
		adm := admin.NewServer(cfg.AdminAddr, store, registry, logger)
		go func() {
			if err := adm.ListenAndServe(ctx); err != nil {
				logger.Error("admin server error", "error", err)
			}
		}()
	}

	return p.ListenAndServe(ctx, cfg.Listen)
}

// loadServeConfig merges the config file, TRONBRIDGE_* environment variables
// and command flags, in increasing order of precedence.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if cfg.Target == "" {
		cfg.Target = os.Getenv("TRONBRIDGE_TARGET")
	}
	if v := os.Getenv("TRONBRIDGE_LISTEN"); v != "" && !cmd.Flags().Changed("listen") && cfg.Listen == config.DefaultListen {
		cfg.Listen = v
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = os.Getenv("TRONBRIDGE_ADMIN")
	}

	if cmd.Flags().Changed("listen") {
		cfg.Listen = serveListen
	}
	if cmd.Flags().Changed("target") {
		cfg.Target = serveTarget
	}
	if cmd.Flags().Changed("admin") {
		cfg.AdminAddr = serveAdmin
	}

	return cfg, nil
}
