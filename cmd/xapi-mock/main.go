package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omochice/xapi/internal/mockserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addr              string
	accountType       string
	tickInterval      time.Duration
	keepAliveInterval time.Duration
	debug             bool
)

var rootCmd = &cobra.Command{
	Use:   "xapi-mock",
	Short: "Run a local imitation of the xAPI WebSocket server",
	Long: `Serves the command session at /<type> and the stream session at
/<type>Stream. Any non-empty user id and password log in.

Example:
  xapi-mock --addr :5124 --type demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(debug)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		srv := mockserver.New(addr, mockserver.Options{
			AccountType:       accountType,
			TickInterval:      tickInterval,
			KeepAliveInterval: keepAliveInterval,
			Logger:            logger,
		})

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start()
		}()

		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-sigChan:
			logger.Info("shutting down", zap.Stringer("signal", sig))
			srv.Stop()
		}

		logger.Info("mock server stopped")
		return nil
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":5124", "address to listen on")
	rootCmd.Flags().StringVar(&accountType, "type", "demo", "account type served, also the URL path")
	rootCmd.Flags().DurationVar(&tickInterval, "tick-interval", 500*time.Millisecond, "interval between tickPrices pushes")
	rootCmd.Flags().DurationVar(&keepAliveInterval, "keep-alive-interval", 3*time.Second, "interval between keepAlive pushes")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
