package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/config"
	"github.com/michaelssavage/spanish-worksheets/internal/delivery"
	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/mail"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// env bundles what most commands need: configuration, logger and an open
// store. Call close when done.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
}

// setup loads configuration and opens the database.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Options())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(cmd.Context(), cfg.Database)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}

// loadConfig reads the config file, applies --db and validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := resolveDSN(cmd, &cfg.Database); err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveDSN applies the --db flag (highest priority), then the configured
// DSN, then the default SQLite path.
func resolveDSN(cmd *cobra.Command, db *store.Config) error {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		db.DSN = p
	}
	sqlite := db.Driver == "" || strings.EqualFold(db.Driver, store.DriverSQLite)
	switch {
	case db.DSN != "" && sqlite:
		return store.EnsureDir(db.DSN)
	case db.DSN != "":
		return nil
	case !sqlite:
		return errors.New("a DSN is required for the postgres driver")
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return err
	}
	db.DSN = p
	return nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close store", "error", err)
	}
	e.log.Sync()
}

func (e *env) provider(ctx context.Context) (llm.Provider, error) {
	if err := e.cfg.ValidateLLM(); err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	return llm.NewProvider(ctx, e.cfg.LLM, e.store.EventRepo(), e.log)
}

func (e *env) generator(ctx context.Context) (*worksheet.Generator, error) {
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}
	return worksheet.NewGenerator(p, e.store.Configs(), e.store.Worksheets(), e.cfg.Worksheet, e.log)
}

func (e *env) delivery(ctx context.Context) (*delivery.Service, error) {
	gen, err := e.generator(ctx)
	if err != nil {
		return nil, err
	}
	return delivery.NewService(gen, e.store.Recipients(), e.store.Worksheets(), e.mailer(), e.log), nil
}

func (e *env) mailer() *mail.Client {
	return mail.New(e.cfg.Mail, e.log)
}

// user looks a subscriber up by email with a readable error.
func (e *env) user(ctx context.Context, email string) (*store.User, error) {
	u, err := e.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
