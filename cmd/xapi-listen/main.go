package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/xapi/pkg/conn"
	"github.com/omochice/xapi/pkg/protocol"
	"github.com/omochice/xapi/pkg/xapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	symbols     []string
	balance     bool
	metricsAddr string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "xapi-listen",
	Short: "Print records pushed by the xAPI stream session",
	Long: `Logs in with the account from the config file, subscribes to tick
prices for every --symbol and prints each pushed record as a line of JSON.
When the link fails the session is rebuilt from scratch after a backoff.

Example:
  xapi-listen --config xapi.toml --symbol EURUSD --symbol GOLD`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return errors.New("--config is required")
		}
		cfg, err := xapi.LoadConfig(configPath)
		if err != nil {
			return err
		}

		logger, err := newLogger(debug)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		reg := prometheus.NewRegistry()
		metrics, err := conn.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		if metricsAddr != "" {
			go serveMetrics(metricsAddr, reg, logger)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []conn.Option{conn.WithLogger(logger), conn.WithMetrics(metrics)}
		err = xapi.RunWithReconnect(ctx, xapi.DefaultBackoff(), logger, func(ctx context.Context) error {
			return listen(ctx, cfg, opts, logger)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func listen(ctx context.Context, cfg xapi.Config, opts []conn.Option, logger *zap.Logger) error {
	client, err := xapi.Connect(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	// Listen only notices cancellation between records.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Close()
		case <-done:
		}
	}()

	for _, symbol := range symbols {
		if err := client.Stream.SubscribeTickPrices(ctx, symbol, 0, 0); err != nil {
			return err
		}
	}
	if balance {
		if err := client.Stream.SubscribeBalance(ctx); err != nil {
			return err
		}
	}
	logger.Info("listening", zap.Strings("symbols", symbols), zap.Bool("balance", balance))

	for {
		record, err := client.Stream.Listen(ctx)
		var decodeErr *protocol.DecodeError
		switch {
		case errors.As(err, &decodeErr):
			logger.Warn("skipping record", zap.Error(err))
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		data := record.Data
		if len(data) == 0 {
			data = []byte("null")
		}
		fmt.Printf("{\"command\":%q,\"data\":%s}\n", record.Kind, data)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML config file")
	rootCmd.Flags().StringArrayVarP(&symbols, "symbol", "s", nil, "symbol to stream tick prices for (repeatable)")
	rootCmd.Flags().BoolVar(&balance, "balance", false, "also stream balance updates")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
