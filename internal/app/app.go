package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/forge-sparks/internal/account"
	"github.com/nhle/forge-sparks/internal/credential"
	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/forge/github"
	"github.com/nhle/forge-sparks/internal/forge/provider"
	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/logger"
	"github.com/nhle/forge-sparks/internal/metrics"
	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/store"
	appsync "github.com/nhle/forge-sparks/internal/sync"
	"github.com/nhle/forge-sparks/internal/ui"
)

// AppName is the desktop entry name used for notifications.
const AppName = "forge-sparks"

// Options override collaborators that are otherwise built from the
// configuration.
type Options struct {
	// Hidden starts without the list view, so the list never counts as
	// focused.
	Hidden bool

	Store      store.Store
	Secrets    account.Secrets
	Notifier   desktop.Notifier
	Opener     desktop.Opener
	HTTPClient *http.Client
}

// actionSource is a notifier that reports activated notification actions.
type actionSource interface {
	Listen(ctx context.Context, handler desktop.ActionHandler) error
}

// App wires the account registry, the polling engine and the desktop
// integration together.
type App struct {
	cfg        *model.AppConfig
	log        *zap.Logger
	store      store.Store
	registry   *account.Registry
	poller     *appsync.Poller
	notifier   desktop.Notifier
	opener     desktop.Opener
	presence   *ui.Presence
	referrer   github.ReferrerStrategy
	httpClient *http.Client

	mu      gosync.Mutex
	program *tea.Program
}

// New builds an App from the configuration.
func New(ctx context.Context, cfg *model.AppConfig, opts Options) (*App, error) {
	referrer, err := github.ParseReferrerStrategy(cfg.GitHub.ReferrerStrategy)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		log:        logger.WithModule("app"),
		store:      opts.Store,
		notifier:   opts.Notifier,
		opener:     opts.Opener,
		presence:   ui.NewPresence(true),
		referrer:   referrer,
		httpClient: opts.HTTPClient,
	}

	if opts.Hidden {
		a.presence = ui.NewHiddenPresence()
	}

	if a.store == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.store = st
	}

	secrets := opts.Secrets
	if secrets == nil {
		ring, err := credential.Open(credential.Config{
			Backends: cfg.Keyring.Backends,
			FileDir:  cfg.Keyring.FileDir,
		})
		if err != nil {
			a.store.Close()
			return nil, err
		}
		secrets = ring
	}

	a.registry, err = account.NewRegistry(ctx, a.store, secrets, a.authenticate, logger.WithModule("account"))
	if err != nil {
		a.store.Close()
		return nil, err
	}

	if a.notifier == nil {
		a.notifier = a.newNotifier()
	}
	if a.opener == nil {
		a.opener = desktop.SystemOpener{}
	}

	a.poller = appsync.New(a.registry, a.build, a.notifier,
		appsync.WithInterval(cfg.Poll.Interval()),
		appsync.WithLogger(logger.WithModule("sync")),
		appsync.WithPresence(a.presence),
	)

	return a, nil
}

func (a *App) newNotifier() desktop.Notifier {
	log := logger.WithModule("desktop")
	if !a.cfg.Notify.Desktop {
		return desktop.NewLogNotifier(log)
	}
	n, err := desktop.NewDBusNotifier(AppName, log)
	if err != nil {
		a.log.Warn("desktop notifications unavailable, logging instead", zap.Error(err))
		return desktop.NewLogNotifier(log)
	}
	return n
}

// Registry returns the account registry.
func (a *App) Registry() *account.Registry {
	return a.registry
}

// Poller returns the polling engine.
func (a *App) Poller() *appsync.Poller {
	return a.poller
}

// Close releases the store.
func (a *App) Close() error {
	a.poller.Close()
	return a.store.Close()
}

// build constructs the forge client of an account.
func (a *App) build(_ context.Context, acct model.Account, token string) (forge.Forge, error) {
	kind, err := forge.ParseKind(acct.Forge)
	if err != nil {
		return nil, err
	}

	return provider.New(kind, forge.Config{
		AccountID:   acct.ID,
		AccountName: acct.DisplayName(),
		URL:         acct.URL,
		Token:       token,
		UserID:      acct.UserID,
		HTTPClient:  a.httpClient,
		Logger:      logger.WithModule("forge." + string(kind)),
	}, provider.Options{GitHubReferrer: a.referrer})
}

// authenticate checks a token before the registry saves it.
func (a *App) authenticate(ctx context.Context, acct model.Account, token string) (forge.User, error) {
	f, err := a.build(ctx, acct, token)
	if err != nil {
		return forge.User{}, err
	}
	return f.Authenticate(ctx)
}

// Open opens a notification in the browser and, once that worked, marks
// it as read.
func (a *App) Open(ctx context.Context, id, url string) error {
	if err := a.opener.Open(ctx, url); err != nil {
		return err
	}
	if _, err := a.poller.Resolve(ctx, id); err != nil {
		a.log.Warn("marking opened notification as read", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// HandleAction dispatches an activated desktop notification action.
func (a *App) HandleAction(ctx context.Context, action desktop.Action) {
	log := a.log.With(zap.String("action", action.Name), zap.Strings("target", action.Target))

	switch action.Name {
	case desktop.ActionOpen:
		if len(action.Target) < 2 {
			log.Warn("malformed action")
			return
		}
		if err := a.Open(ctx, action.Target[0], action.Target[1]); err != nil {
			log.Warn("opening notification", zap.Error(err))
		}

	case desktop.ActionMarkRead:
		if len(action.Target) < 1 {
			log.Warn("malformed action")
			return
		}
		if _, err := a.poller.Resolve(ctx, action.Target[0]); err != nil {
			log.Warn("marking notification as read", zap.Error(err))
		}

	case desktop.ActionActivate:
		a.mu.Lock()
		p := a.program
		a.mu.Unlock()
		if p != nil {
			p.Send(activateMsg{})
		}

	default:
		log.Debug("ignoring unknown action")
	}
}

// Serve runs the polling loop, the notification action listener and the
// metrics endpoint until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.poller.Run(ctx)
	})

	if src, ok := a.notifier.(actionSource); ok {
		g.Go(func() error {
			return src.Listen(ctx, func(action desktop.Action) {
				go a.HandleAction(ctx, action)
			})
		})
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return a.serveMetrics(ctx, addr)
		})
	}

	return g.Wait()
}

func (a *App) serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("stopping metrics server", zap.Error(err))
		}
	}()

	a.log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// RunTUI serves in the background and runs the terminal UI until the
// user quits or ctx is cancelled.
func (a *App) RunTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Serve(ctx)
	})

	m := NewModel(a.poller, a.registry, a.Open, a.presence, keys.DefaultKeyMap())
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)

	a.mu.Lock()
	a.program = p
	a.mu.Unlock()

	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})

	return g.Wait()
}
