package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate"
	"github.com/influxgate/influxgate/api"
	"github.com/influxgate/influxgate/client"
	"github.com/influxgate/influxgate/config"
)

const shutdownGrace = 10 * time.Second

func main() {
	dryRun := flag.Bool("dry-run", false, "probe the backend, list up to five containers, then exit")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	config.SetupLogging(settings.LogLevel)
	log.Info().Fields(settings.Fields()).Msg("settings loaded")

	backend := client.NewWithFallback(settings)
	defer backend.Close()
	log.Info().Str("backend", backend.Version()).Msg("backend client initialized")

	if *dryRun {
		code := runDryRun(backend)
		// os.Exit would skip the deferred Close.
		if err := backend.Close(); err != nil {
			log.Warn().Err(err).Msg("closing backend client")
		}
		os.Exit(code)
	}

	adaptor := influxgate.NewAdaptor(backend)
	server := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: api.NewServer(adaptor, log.Logger).Handler(),
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", settings.ListenAddr).Msg("listening")
		errs <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		log.Fatal().Err(err).Msg("server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown incomplete")
		}
	}
}

// runDryRun verifies connectivity without serving: ping the backend and show
// a handful of containers.
func runDryRun(backend client.Client) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !backend.Ping(ctx) {
		log.Error().Msg("dry run: backend unreachable")
		return 1
	}
	containers, err := backend.ListContainers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("dry run: listing containers failed")
		return 1
	}
	if len(containers) > 5 {
		containers = containers[:5]
	}
	for _, c := range containers {
		log.Info().Str("name", c.Name).Str("kind", c.Kind).Msg("dry run: container")
	}
	log.Info().Int("shown", len(containers)).Msg("dry run: ok")
	return 0
}
