package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	httphandler "github.com/ericfisherdev/issuetriage/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/issuetriage/internal/adapter/driving/web"
	"github.com/ericfisherdev/issuetriage/internal/application"
)

// shutdownTimeout bounds the HTTP drain on exit.
const shutdownTimeout = 10 * time.Second

// ServeCmd runs the review UI.
type ServeCmd struct {
	Port      int  `help:"Port to listen on (overrides ISSUETRIAGE_PORT)." placeholder:"PORT"`
	ServeOnly bool `name:"serve-only" help:"Skip initialization and duplicate detection; serve the existing files."`
}

// Run executes the serve command.
func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Port != 0 {
		a.cfg.Port = c.Port
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}
	logger := a.logger

	if !c.ServeOnly {
		added, err := a.session.Initialize(ctx)
		if err != nil {
			return err
		}
		logger.Info("findings initialized", "added", added)
		if _, err := a.dedupe.Run(ctx); err != nil {
			return err
		}
	}

	repo, err := a.repo(ctx)
	if err != nil {
		return err
	}

	tracker := a.tracker()
	if a.github != nil {
		login, err := a.github.ValidateToken(ctx)
		if err != nil {
			logger.Warn("github token could not be validated; remote actions may fail", "error", err)
		} else {
			logger.Info("github token validated", "login", login)
		}
	} else {
		logger.Warn("no GitHub token configured; close and comment are disabled")
	}

	actions := application.NewActionService(a.issues, a.decisions, tracker, a.journal, repo, a.cfg.ActionTimeout, logger)
	deepDive := application.NewDeepDiveService(ctx, a.issues, a.findings, a.analyzer, a.journal, a.cfg.TriageDir, a.cfg.DeepDiveTimeout, logger)
	monitor := application.NewFindingsMonitor(a.findings, a.findings, logger)

	mux := http.NewServeMux()
	httphandler.RegisterRoutes(mux, httphandler.NewHandler(a.session, actions, deepDive, logger))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(
		a.session, actions, deepDive, a.journal, a.cfg.DeepDivePollInterval, tracker != nil, logger,
	))

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           httphandler.ApplyMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      a.cfg.ActionTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr, "repo", repo)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := monitor.Start(gctx); err != nil {
			logger.Warn("findings monitor stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	fmt.Printf("Issue triage UI: %s\n", a.cfg.BaseURL())

	err = g.Wait()
	deepDive.Wait()
	logger.Info("shutdown complete")
	return err
}
