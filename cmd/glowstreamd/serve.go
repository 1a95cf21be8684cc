package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seiftnesse/glowstream/buffer"
	"github.com/seiftnesse/glowstream/display"
	"github.com/seiftnesse/glowstream/logger"
	"github.com/seiftnesse/glowstream/pkg/config"
	"github.com/seiftnesse/glowstream/server"
	"github.com/seiftnesse/glowstream/stats"
)

func serveCmd() *cobra.Command {
	var configFile string
	var headless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the receiver",
		Long: `Start the TCP listener and the presentation loop. Without a config
file the built-in defaults are used: a 32x64 matrix chained 8 wide on
port 49152, rendered as a terminal preview.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				loaded, err := config.LoadConfig(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			if err := logger.SetGlobalLevelFromString(cfg.LogLevel); err != nil {
				return err
			}

			return runServe(cfg, headless)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path (JSON)")
	cmd.Flags().BoolVar(&headless, "headless", false, "Discard frames instead of rendering a terminal preview")

	return cmd
}

func runServe(cfg *config.Config, headless bool) error {
	st := stats.Global()
	queue := buffer.NewQueue(cfg.QueueCapacity)

	var sink display.Sink
	if headless {
		sink = display.NewNullSink(cfg.PixelCount())
	} else {
		// Chained panels sit side by side, so the logical display is
		// cols*chain wide and rows tall.
		sink = display.NewTermSink(os.Stdout, cfg.MatrixCols*cfg.ChainLength, cfg.MatrixRows)
	}

	srv, err := server.Listen(cfg, queue, st)
	if err != nil {
		return err
	}

	sched := display.NewScheduler(queue, sink, display.SchedulerConfig{
		MaxWaitInterval: cfg.MaxWaitInterval,
		DiscardBacklog:  cfg.DiscardBacklog,
		Stats:           st,
	})

	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info("debug HTTP server on %s", cfg.MetricsAddr)
			if err := stats.Serve(cfg.MetricsAddr, st); err != nil {
				logger.Error("debug HTTP server: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
		srv.Close()
		sched.Stop()
		<-serveErr
		<-schedErr
		return nil
	case err := <-schedErr:
		srv.Close()
		<-serveErr
		if err != nil {
			return fmt.Errorf("presentation stopped: %w", err)
		}
		return nil
	case err := <-serveErr:
		sched.Stop()
		<-schedErr
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	}
}
