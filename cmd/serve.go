package cmd

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

	"github.com/kiesman99/geomap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the map rendering API",
	Long: `Start an HTTP server that provides a REST API for rendering map viewports.

Viewports can be requested as JSON (POST /api/v1/render) or with query
parameters (GET /api/v1/render). Both answer with a PNG image.

Examples:
  # Start server on default port 8080
  geomap serve

  # Start server on custom port
  geomap serve --port 3000

  # Start server with custom bind address and at most two renders at a time
  geomap serve --bind 0.0.0.0 --port 8080 --max-renders 2`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().Uint("max-renders", 4, "maximum concurrent renders")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.max-renders", serveCmd.Flags().Lookup("max-renders"))
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)

	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	apiServer := server.NewServer(server.Options{
		Version:    version,
		Fetcher:    newProcessor(),
		Logger:     log,
		MaxRenders: viper.GetUint("server.max-renders"),
		Workers:    viper.GetInt("workers"),
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	log.Infof("Starting geomap server on %s", addr)
	log.Infof("Health check: http://%s/api/v1/health", addr)
	log.Infof("Render endpoint: http://%s/api/v1/render", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
