package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bobuk/clistcal/internal/calendar"
	"github.com/bobuk/clistcal/internal/config"
	"github.com/bobuk/clistcal/internal/credstore"
	"github.com/bobuk/clistcal/internal/logging"
)

// app holds what every command needs: config, output, and the calendar.
type app struct {
	config     *config.Config
	logger     *slog.Logger
	printer    *logging.Printer
	store      *credstore.SQLiteStore
	factory    *calendar.CalendarFactory
	provider   calendar.CalendarProvider
	calendarID string
}

// newApp loads the config and opens the token store. The calendar provider is
// created lazily by calendarProvider.
func newApp(ctx context.Context, out, errOut io.Writer, in io.Reader) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	logger := logging.NewLogger(errOut, cfg.Verbosity())
	a := &app{
		config:  cfg,
		logger:  logger,
		printer: logging.NewPrinter(out, cfg.Verbosity()),
	}

	var auth credstore.Authenticator
	if isTerminal(in) {
		auth = &credstore.WebAuthenticator{In: in, Out: out}
	}

	if cfg.Provider == "google" {
		store, err := credstore.Open(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		a.store = store
	}

	var store credstore.Store
	if a.store != nil {
		store = a.store
	}
	a.factory = calendar.NewCalendarFactory(ctx, cfg, store, auth, logger)
	a.calendarID = a.factory.CalendarID(cfg.Provider)
	return a, nil
}

func (a *app) calendarProvider() (calendar.CalendarProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	provider, err := a.factory.CreateCalendarProvider(a.config.Provider)
	if err != nil {
		return nil, fmt.Errorf("error creating %s calendar provider: %w", a.config.Provider, err)
	}
	a.provider = provider
	return provider, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// isTerminal reports whether in is an interactive terminal; scheduled runs
// must not block on the OAuth prompt.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
