package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/metalagman/devboard/internal/azure"
	"github.com/metalagman/devboard/internal/config"
	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/session"
	"github.com/metalagman/devboard/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const sessionPurgeInterval = 10 * time.Minute

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app := fx.New(serveOptions(cfg)...)
			if err := app.Err(); err != nil {
				return err
			}
			startCtx, cancel := context.WithTimeout(cmd.Context(), app.StartTimeout())
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return fmt.Errorf("start: %w", err)
			}

			select {
			case sig := <-app.Done():
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			case <-cmd.Context().Done():
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serveOptions is the composition root of the serve command.
func serveOptions(cfg config.Config) []fx.Option {
	return []fx.Option{
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			newDatabase,
			newSessionStore,
			db.NewStore,
			newRemoteFactory,
			newWebServer,
			newAPIServer,
		),
		fx.Invoke(func(*apiServer) {}),
	}
}

func newDatabase(lc fx.Lifecycle, cfg config.Config) (*sql.DB, error) {
	storeDB, err := db.Open(context.Background(), cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return storeDB.Close() },
	})
	return storeDB, nil
}

// newSessionStore also purges expired sessions while the app runs. Without
// session.key_file, logins do not survive a restart.
func newSessionStore(lc fx.Lifecycle, storeDB *sql.DB, cfg config.Config) (*session.Store, error) {
	var identity *age.X25519Identity
	if cfg.Session.KeyFile != "" {
		var err error
		if identity, err = session.LoadIdentity(cfg.Session.KeyFile); err != nil {
			return nil, err
		}
	}
	store, err := session.NewStore(storeDB, cfg.Session.TTL, identity)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(stopped)
				ticker := time.NewTicker(sessionPurgeInterval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						n, err := store.PurgeExpired(context.Background())
						if err != nil {
							log.Warn().Err(err).Msg("purge expired sessions")
							continue
						}
						if n > 0 {
							log.Debug().Int64("count", n).Msg("expired sessions purged")
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return store, nil
}

// newRemoteFactory scopes an Azure DevOps client to each login. The PAT always
// comes from the login, never from the environment.
func newRemoteFactory(cfg config.Config) web.RemoteFactory {
	base := azureConfig(cfg.Azure)
	return func(organization, project, pat string) (web.Remote, error) {
		if strings.TrimSpace(pat) == "" {
			return nil, errors.New("personal access token is required")
		}
		c := base
		c.Organization = organization
		c.Project = project
		c.PAT = pat
		client, err := azure.NewClient(c)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func newWebServer(cfg config.Config, sessions *session.Store, events *db.Store, remotes web.RemoteFactory) (*web.Server, error) {
	return web.NewServer(web.Options{
		Sessions:       sessions,
		Events:         events,
		NewRemote:      remotes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
}

type apiServer struct {
	srv *http.Server
	ln  net.Listener
}

// URL is the base URL the server listens on. It is empty before start.
func (a *apiServer) URL() string {
	if a.ln == nil {
		return ""
	}
	return "http://" + a.ln.Addr().String()
}

func newAPIServer(lc fx.Lifecycle, cfg config.Config, handler *web.Server) *apiServer {
	a := &apiServer{
		srv: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler.Routes(),
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
		},
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var listen net.ListenConfig
			ln, err := listen.Listen(ctx, "tcp", a.srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.srv.Addr, err)
			}
			a.ln = ln
			log.Info().Str("addr", ln.Addr().String()).Msg("serving proxy API")
			go func() {
				if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return a.srv.Shutdown(ctx)
		},
	})
	return a
}
