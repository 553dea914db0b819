// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmorph/internal/server"
	"github.com/pdiddy/docmorph/internal/session"
	"github.com/pdiddy/docmorph/pkg/types"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser UI and session API",
	Long: `Serve starts an HTTP server with a single-page UI: upload a PDF or image,
pick an output format, optionally add instructions, convert, then copy or
download the result. Each browser gets its own session, identified by a
cookie; idle sessions are evicted after server.session_ttl.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := session.NewManager(rt.service, rt.cfg.Server.SessionTTL, rt.logger,
		session.WithReadingDelay(rt.cfg.Server.ReadingDelay))
	go mgr.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr: rt.cfg.Server.Addr,
		Handler: server.New(server.Config{
			Sessions:    mgr,
			Logger:      rt.logger,
			CORSOrigins: rt.cfg.Server.CORSOrigins,
			Model:       rt.backend.Model(),
			Version:     version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info().Str("addr", srv.Addr).Str("model", rt.backend.Model()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default "+types.DefaultAddr+")")
	f.Duration("reading-delay", 0, "pause between reading and processing (default 800ms)")
	f.StringSlice("cors-origin", nil, "allowed CORS origin; repeatable")

	mustBind("server.addr", f.Lookup("addr"))
	mustBind("server.reading_delay", f.Lookup("reading-delay"))
	mustBind("server.cors_origins", f.Lookup("cors-origin"))

	rootCmd.AddCommand(serveCmd)
}
