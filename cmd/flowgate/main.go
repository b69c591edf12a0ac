package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/flowgate/internal/authn"
	"github.com/dropDatabas3/flowgate/internal/cache"
	"github.com/dropDatabas3/flowgate/internal/config"
	"github.com/dropDatabas3/flowgate/internal/federation"
	httpx "github.com/dropDatabas3/flowgate/internal/http"
	"github.com/dropDatabas3/flowgate/internal/metrics"
	"github.com/dropDatabas3/flowgate/internal/observability/logger"
	"github.com/dropDatabas3/flowgate/internal/oidc"
	"github.com/dropDatabas3/flowgate/internal/secret"
	"github.com/dropDatabas3/flowgate/internal/security/password"
	"github.com/dropDatabas3/flowgate/internal/signingkeys"
	"github.com/dropDatabas3/flowgate/internal/store/pg"
)

var version = "dev"

func main() {
	// .env es opcional; en prod la config llega por entorno real.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:          "flowgate",
		Short:        "Servicio de autenticación e identidad federada",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("FLOWGATE_CONFIG"), "ruta del YAML de configuración (opcional)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(secretCmd(&cfgPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: "info"})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			ctx := cmd.Context()

			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("serve requiere storage.driver=postgres (actual: %s)", cfg.Storage.Driver)
			}
			store, err := pg.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			cacheClient, err := cache.New(cache.Config{
				Driver:   cfg.Cache.Driver,
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				Prefix:   cfg.Cache.Redis.Prefix,
			})
			if err != nil {
				return err
			}
			defer func() { _ = cacheClient.Close() }()

			if err := metrics.RegisterAuth(nil); err != nil {
				return err
			}

			httpClient := &http.Client{Timeout: cfg.FederationHTTPTimeout()}
			if cfg.Federation.InsecureSkipTLSVerify {
				log.Warn("TLS verification disabled for OIDC calls; local issuers only")
				httpClient.Transport = &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				}
			}

			discovery := oidc.NewDiscoveryCache(oidc.Options{
				InsecureSkipVerify: cfg.Federation.InsecureSkipTLSVerify,
				Timeout:            cfg.FederationHTTPTimeout(),
			})

			registry := federation.NewRegistry()
			registry.Register(federation.NewGoogle(discovery, httpClient))
			registry.Register(federation.NewGitHub(httpClient))
			registry.Register(federation.NewOIDC(discovery, httpClient))

			fedSvc := federation.NewService(federation.ServiceDeps{
				Platforms: store.Platforms,
				Registry:  registry,
				Redirects: federation.RedirectResolver{FrontendBase: cfg.Federation.FrontendBase},
				States:    federation.NewStateStore(cacheClient),
			})

			authSvc := authn.NewService(authn.Deps{
				Users:             store.Users,
				Hasher:            password.Argon2id(),
				Secrets:           secret.NewManager(cfg.Secret.Override, cfg.Secret.DataDir),
				Issuer:            cfg.JWT.Issuer,
				TokenTTL:          cfg.SessionTTL(),
				NewsletterEnabled: cfg.Newsletter.Enabled,
			})

			handler := httpx.NewRouter(httpx.RouterDeps{
				Auth:      httpx.NewAuthController(authSvc),
				Federated: httpx.NewFederatedController(fedSvc, authSvc),
				Tokens:    httpx.NewTokensController(signingkeys.NewRegistry(store.SigningKeys)),
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("flowgate listening", logger.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Info("flowgate stopped")
			return nil
		},
	}
}

func secretCmd(cfgPath *string) *cobra.Command {
	secretRoot := &cobra.Command{
		Use:   "secret",
		Short: "Operaciones sobre el secret de firma manejado",
	}

	secretRoot.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Pre-provisiona el secret manejado en el data dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Secret.Override != "" {
				return fmt.Errorf("hay un override externo configurado; nada que generar")
			}
			mgr := secret.NewManager("", cfg.Secret.DataDir)
			if _, err := mgr.Get(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("secret listo en %s\n", cfg.Secret.DataDir)
			return nil
		},
	})

	return secretRoot
}
