package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"suivi/internal/app"
	"suivi/internal/config"
	"suivi/internal/db"
	"suivi/internal/migrate"
	"suivi/internal/stub"
)

func stubCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "stub",
		Short: "Local fake reporting backend",
		Long:  "The stub serves the reporting API from SQLite, seeded from the stub.seed section of " + config.FileName + ". Without --persist it lives in memory.",
	}
	s.PersistentFlags().Bool("persist", false, "keep data in .suivi/stub.db under --dir")
	_ = viper.BindPFlag("persist", s.PersistentFlags().Lookup("persist"))
	s.AddCommand(stubServeCmd())
	s.AddCommand(stubTokenCmd())
	return s
}

// openStubStore opens the stub database, applies migrations and seeds it on
// first creation.
func openStubStore(ctx context.Context, cfg *config.Config) (*stub.Store, func() error, error) {
	dbCfg := db.Config{}
	if viper.GetBool("persist") {
		dbCfg.Dir = viper.GetString("dir")
	}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return nil, nil, err
	}
	applied, err := migrate.Up(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	store := stub.NewStore(conn)
	if applied > 0 {
		if err := store.Seed(ctx, cfg.Stub.Seed); err != nil {
			conn.Close()
			return nil, nil, err
		}
	}
	return store, conn.Close, nil
}

func stubServeCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Stub.Addr
			}
			logger, err := app.NewLogger(os.Stderr, cfg.Logging.Level)
			if err != nil {
				return err
			}
			store, closeDB, err := openStubStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			handler, err := stub.New(stub.Config{
				Store:    store,
				BasePath: basePath,
				Auth:     stub.AuthConfig{JWTSecret: cfg.Auth.JWTSecret, Logger: logger},
				Registry: reg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving stub API", "url", "http://"+addr+basePath, "openapi", "/openapi.json", "metrics", "/metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func stubTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <disciple-id>",
		Short: "Mint a session token for a seeded disciple",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeDB, err := openStubStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			token, err := stub.Token(cmd.Context(), store, cfg.Auth.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"token": token})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
