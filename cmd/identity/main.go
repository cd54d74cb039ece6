package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellojohn-identity/internal/app"
	"github.com/dropDatabas3/hellojohn-identity/internal/config"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/router"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// Seteadas con -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// .env opcional; las variables del sistema mandan
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "identity",
		Short:         "Núcleo de identidad multi-tenant (TOTP, usuarios, storages)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "config.yaml"), "Archivo de config YAML (env CONFIG_PATH)")

	load := func() (*config.Config, error) {
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "identity", Version: version})
		return cfg, nil
	}

	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		pruneCodesCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Muestra la versión",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "identity %s (%s)\n", version, commit)
			},
		},
	)
	return root
}

type loader func() (*config.Config, error)

// loadConfig sin archivo arranca con defaults (sólo válido en dev).
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Parse(nil)
	}
	return config.Load(path)
}

// ─── serve ───

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := app.Build(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					log.Warn("shutdown cleanup failed", logger.Err(err))
				}
			}()

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: router.New(router.Deps{
					Resolver:    c.Resolver,
					MFA:         c.MFA,
					Users:       c.Users,
					Cache:       c.Cache,
					APIKeys:     cfg.Server.APIKeys,
					Version:     version,
					Metrics:     c.Metrics,
					MetricsPath: cfg.Metrics.Path,
				}),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", logger.String("addr", cfg.Server.Addr),
					logger.Int("storages", len(cfg.Storages)), logger.Int("tenants", len(cfg.Tenants)))
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

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// ─── migrate ───

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes en cada storage que las soporte",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return withStorages(cmd.Context(), cfg, func(ctx context.Context, _ *app.Container, conns []store.StorageConn) error {
				for _, sc := range conns {
					m, ok := sc.Conn.(store.MigratableConnection)
					if !ok {
						logger.L().Debug("storage has no migrations", logger.Storage(sc.Name))
						continue
					}
					applied, err := m.Migrate(ctx)
					if err != nil {
						return fmt.Errorf("migrate %s: %w", sc.Name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied %v\n", sc.Name, len(applied), applied)
				}
				return nil
			})
		},
	}
}

// ─── prune-codes ───

func pruneCodesCmd(load loader) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "prune-codes",
		Short: "Borra los códigos TOTP usados que ya expiraron",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("grace") {
				grace = cfg.TOTP.PruneGrace
			}
			return withStorages(cmd.Context(), cfg, func(ctx context.Context, c *app.Container, conns []store.StorageConn) error {
				n, err := c.MFA.PruneExpiredCodes(ctx, conns, grace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d code(s) pruned\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 0, "Retención extra después de expirar (default totp.prune_grace)")
	return cmd
}

// withStorages arma el contenedor y abre todos los storages configurados.
func withStorages(ctx context.Context, cfg *config.Config, fn func(context.Context, *app.Container, []store.StorageConn) error) error {
	c, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	conns, err := c.Resolver.Storages(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, c, conns)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
