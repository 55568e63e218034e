package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/mnemo/pkg/config"
	"github.com/soundprediction/mnemo/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mnemo HTTP server",
	Long: `Start the mnemo HTTP server to provide REST API access to the
knowledge graph: ingesting text, asking questions, and direct record
access.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().Int("port", 8080, "server port")
	serveCmd.Flags().String("mode", "release", "server mode (debug, release, test)")

	serveCmd.Flags().String("store-provider", "", "graph store provider (neo4j, badger)")
	serveCmd.Flags().String("store-path", "", "badger data directory")
	serveCmd.Flags().String("store-uri", "", "neo4j URI")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("store.provider", serveCmd.Flags().Lookup("store-provider"))
	_ = viper.BindPFlag("store.path", serveCmd.Flags().Lookup("store-path"))
	_ = viper.BindPFlag("store.uri", serveCmd.Flags().Lookup("store-uri"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, log, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	srv := server.New(cfg, engine, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
