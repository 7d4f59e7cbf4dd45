// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package app wires a community-auth session from its config: the secure
// store backend, the loopback redirect listener and the browser presenter.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/communityapp/authsession/internal/appconfig"
	"github.com/communityapp/authsession/oidc"
	"github.com/communityapp/authsession/oidc/callback"
	"github.com/communityapp/authsession/securestore"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/skratchdot/open-golang/open"
)

const (
	callbackPath = "/callback"
	logoutPath   = "/logout"
)

// App is a session together with everything it needs to run an
// interactive flow from a terminal.
type App struct {
	Session *oidc.Session
	Store   *oidc.StateStore
	Config  *oidc.Config

	backend  securestore.Backend
	listener net.Listener
	server   *http.Server
	logger   hclog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// Open builds the App described by cfg.  The returned App owns a loopback
// listener and must be closed.
func Open(ctx context.Context, cfg *appconfig.Config, opt ...Option) (*App, error) {
	const op = "app.Open"
	opts := getOpts(opt...)
	logger := opts.withLogger

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		closeBackend(backend)
		return nil, fmt.Errorf("%s: unable to listen for redirects: %w", op, err)
	}
	base := "http://" + l.Addr().String()

	a := &App{
		backend:  backend,
		listener: l,
		logger:   logger,
		done:     make(chan struct{}),
	}
	if err := a.setup(ctx, cfg, base, opts); err != nil {
		_ = l.Close()
		closeBackend(backend)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (a *App) setup(ctx context.Context, cfg *appconfig.Config, base string, opts options) error {
	oidcCfg, err := cfg.OIDCConfig(base+callbackPath, base+logoutPath)
	if err != nil {
		return err
	}
	store, err := oidc.NewStateStore(a.backend, oidc.WithLogger(a.logger))
	if err != nil {
		return err
	}
	validator, err := oidc.NewStateValidator(store, oidcCfg.ClientID, oidc.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if !validator.Validate() {
		a.logger.Info("discarded auth state issued to another client", "client_id", oidcCfg.ClientID)
	}

	presenter := opts.withPresenter
	if presenter == nil {
		presenter = BrowserPresenter(opts.withOutput)
	}
	s, err := oidc.NewSession(oidcCfg, store, presenter, oidc.WithLogger(a.logger))
	if err != nil {
		return err
	}

	handler, err := callback.Loopback(s, callback.SuccessPage, callback.ErrorPage)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(callbackPath, handler)
	mux.Handle(logoutPath, handler)
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	a.Session, a.Store, a.Config = s, store, oidcCfg

	watchCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.serve()
	a.watch(watchCtx)
	return nil
}

func (a *App) serve() {
	defer close(a.done)
	if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("redirect listener stopped", "error", err)
	}
}

// watch reloads the store whenever another process replaces the record in
// a shared file store.
func (a *App) watch(ctx context.Context) {
	f, ok := a.backend.(*securestore.File)
	if !ok {
		return
	}
	go func() {
		if err := f.Watch(ctx, oidc.DefaultStateKey, a.Store.Reload); err != nil {
			a.logger.Warn("stopped watching auth state", "error", err)
		}
	}()
}

// RedirectBase returns the scheme and address of the loopback listener.
func (a *App) RedirectBase() string {
	return "http://" + a.listener.Addr().String()
}

// Close stops the listener and releases the backend.
func (a *App) Close() error {
	var result *multierror.Error
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	<-a.done
	if c, ok := a.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func openBackend(cfg *appconfig.Config, logger hclog.Logger) (securestore.Backend, error) {
	switch cfg.Store.Backend {
	case appconfig.StoreMemory:
		return securestore.NewMemory(), nil
	case appconfig.StoreKeyring:
		service := cfg.Store.Service
		if service == "" {
			service = appconfig.DefaultKeyringService
		}
		k, err := securestore.NewKeyring(service + "/" + cfg.Environment)
		if err != nil {
			return nil, err
		}
		return k, nil
	case appconfig.StoreFile, appconfig.StoreSQLite:
		path, err := cfg.StorePath()
		if err != nil {
			return nil, err
		}
		if cfg.Store.Backend == appconfig.StoreSQLite {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("unable to create store dir: %w", err)
			}
			db, err := securestore.NewSQLite(path)
			if err != nil {
				return nil, err
			}
			return db, nil
		}
		f, err := securestore.NewFile(path, logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func closeBackend(b securestore.Backend) {
	if c, ok := b.(io.Closer); ok {
		_ = c.Close()
	}
}

// BrowserPresenter opens authorization urls in the system browser.  When
// no browser can be started the url is written to w for the user to open.
func BrowserPresenter(w io.Writer) oidc.Presenter {
	return oidc.PresenterFunc(func(_ context.Context, u string) error {
		if err := open.Run(u); err != nil {
			fmt.Fprintf(w, "Open this URL in your browser to continue:\n\n  %s\n\n", u)
		}
		return nil
	})
}
