package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/microsurgery-gpt/pkg/proxy"
	"github.com/go-go-golems/microsurgery-gpt/pkg/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API and the stateless proxy over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), viper.GetString("addr"))
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cobra.CheckErr(viper.BindPFlag("addr", cmd.Flags().Lookup("addr")))
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if err := configureSession(ctx, s, false); err != nil {
		return err
	}

	endpoint := viper.GetString("gemini-endpoint")
	if err := endpointPolicy().ValidateEndpoint(endpoint); err != nil {
		return errors.Wrap(err, "gemini-endpoint")
	}

	srv := &server.Server{
		Session: s,
		Proxy: proxy.NewHandler(proxy.Config{
			APIKey:   viper.GetString("gemini-api-key"),
			Endpoint: endpoint,
		}),
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", addr).
		Str("session_id", s.SessionID).
		Bool("configured", s.IsConfigured()).
		Str("model", s.Persona().Model).
		Msg("Starting server")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
