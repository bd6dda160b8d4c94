package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/antidup/internal/config"
	"github.com/roach88/antidup/internal/lockfile"
	"github.com/roach88/antidup/internal/migrate"
	"github.com/roach88/antidup/internal/store"
)

// session is the state shared by every command: configuration, logging,
// the process lock and an open store.
type session struct {
	cfg       config.Config
	backend   store.Backend
	lock      *lockfile.Lock
	closeLog  func() error
	formatter *OutputFormatter
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// fail logs err, reports it through the formatter and wraps it with an exit
// code. The returned error is marked as reported.
func fail(f *OutputFormatter, exitCode int, code, message string, err error, details interface{}) error {
	exitErr := NewExitError(exitCode, message)
	if err != nil {
		exitErr = WrapExitError(exitCode, message, err)
		slog.Error(message, "code", code, "error", err)
	} else {
		slog.Error(message, "code", code)
	}

	_ = f.Error(code, exitErr.Error(), details)
	exitErr.Reported = true
	return exitErr
}

// openSession loads configuration, starts logging, takes the process lock
// and opens the store, in that order. Every failure here happens before
// anything is mutated.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session, error) {
	f := newFormatter(cmd, opts)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, fail(f, ExitCommandError, CodeConfig, "failed to load configuration", err, nil)
	}

	closeLog, err := setupLogging(cfg.LogPath, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, fail(f, ExitCommandError, CodeConfig, "failed to set up logging", err, nil)
	}
	s := &session{cfg: cfg, closeLog: closeLog, formatter: f}
	slog.Debug("configuration loaded", "config", cfg.String())

	lock, err := lockfile.Acquire(cfg.LockDirectory())
	if err != nil {
		s.Close()
		return nil, fail(f, ExitCommandError, CodeLock, "failed to acquire lock", err, nil)
	}
	s.lock = lock

	open := opts.OpenStore
	if open == nil {
		open = store.Open
	}
	backend, err := open(ctx, store.Options{
		Location: cfg.StorePath,
		Kind:     cfg.Backend,
		Fallback: cfg.FallbackEncoding,
	})
	if err != nil {
		s.Close()
		msg := "failed to open store"
		if errors.Is(err, store.ErrUnavailable) {
			msg = "store unavailable"
		}
		return nil, fail(f, ExitCommandError, CodeStore, msg, err, nil)
	}
	s.backend = backend
	slog.Debug("store ready", "backend", cfg.ResolvedBackend())

	return s, nil
}

// Close releases everything openSession acquired, in reverse order.
func (s *session) Close() {
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			slog.Error("error releasing lock", "error", err)
		}
	}
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}

// migrateLegacy runs the flat-file migration when the live store is
// indexed. A flat-file live store is never a migration target.
func (s *session) migrateLegacy(ctx context.Context) (*migrate.Result, error) {
	if !s.cfg.ResolvedBackend().Indexed() {
		if s.cfg.LegacyPath != s.cfg.StorePath {
			if pending, _ := migrate.Pending(s.cfg.LegacyPath); pending {
				slog.Warn("legacy store ignored: live store is a flat file",
					"legacy", s.cfg.LegacyPath, "store", s.cfg.StorePath)
			}
		}
		return &migrate.Result{}, nil
	}

	res, err := migrate.Run(ctx, s.backend, migrate.Options{
		LegacyPath: s.cfg.LegacyPath,
		BatchSize:  s.cfg.BatchSize,
		Fallback:   s.cfg.FallbackEncoding,
	})
	return &res, err
}

// runID returns a fresh identifier for one run.
func (o *RootOptions) runID() string {
	if o.RunID != nil {
		return o.RunID()
	}
	return uuid.Must(uuid.NewV7()).String()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the current batch", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
