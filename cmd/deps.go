package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/examtaker/internal/api"
	"github.com/abhisek/examtaker/internal/auth"
	"github.com/abhisek/examtaker/internal/config"
	"github.com/abhisek/examtaker/internal/logging"
	"github.com/abhisek/examtaker/internal/ordercache"
	"github.com/abhisek/examtaker/internal/report"
	"github.com/abhisek/examtaker/internal/session"
	"github.com/abhisek/examtaker/internal/store"
	"github.com/spf13/cobra"
)

// deps is everything a command needs, built from configuration.
type deps struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	client  *api.Client
	orders  session.OrderStore
	reports *report.CachingFetcher

	closers []func() error
}

// depsOpts selects which parts of deps a command builds.
type depsOpts struct {
	interactive bool // log to a file instead of stderr
	remote      bool // API client, credential and order store
}

// setup loads configuration and builds the dependencies. The returned
// context carries the credential when opts.remote is set. Callers must
// call deps.Close.
func setup(cmd *cobra.Command, opts depsOpts) (context.Context, *deps, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, closeLog, err := logging.Setup(cfg.Log, opts.interactive)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	d := &deps{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	d.store = st
	d.closers = append(d.closers, st.Close)

	if !opts.remote {
		return ctx, d, nil
	}

	cred, err := cfg.Credential()
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	if err := cred.Check(time.Now()); err != nil {
		d.Close()
		return nil, nil, err
	}
	ctx = auth.WithCredential(ctx, cred)

	retry := api.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	hc := api.NewHTTPClient(cfg.Timeout, retry, st.EventRepo(), logger)
	d.client = api.New(cfg.APIURL, api.WithHTTPClient(hc), api.WithLogger(logger))
	d.reports = &report.CachingFetcher{
		Fetcher: d.client,
		Reports: st.ReportRepo(),
		Logger:  logger,
	}

	if err := d.openOrderStore(ctx); err != nil {
		d.Close()
		return nil, nil, err
	}
	return ctx, d, nil
}

func (d *deps) openOrderStore(ctx context.Context) error {
	switch d.cfg.OrderStore {
	case config.OrderStoreMemory:
		d.orders = ordercache.NewMemory()
	case config.OrderStoreRedis:
		r, err := ordercache.DialRedis(ctx, d.cfg.Redis.Addr, d.cfg.Redis.Password, d.cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect order store: %w", err)
		}
		d.orders = r
		d.closers = append(d.closers, r.Close)
	}
	return nil
}

// newController returns a fresh session controller. One controller drives
// exactly one exam screen.
func (d *deps) newController() *session.Controller {
	opts := []session.Option{
		session.WithTickInterval(d.cfg.Tick),
		session.WithRecorder(d.store.EventRepo()),
		session.WithLogger(d.logger),
	}
	if d.orders != nil {
		opts = append(opts, session.WithOrderStore(d.orders))
	}
	return session.NewController(d.client, d.client, opts...)
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// currentUser resolves the identity behind the credential.
func (d *deps) currentUser(ctx context.Context) (*auth.User, error) {
	u, err := d.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify user: %w", err)
	}
	return u, nil
}
