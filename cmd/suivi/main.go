package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"suivi/internal/app"
	"suivi/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "suivi",
	Short: "Suivi reporting CLI",
	Long: `Suivi keeps a local view of spiritual-activity reports and the discipleship
hierarchy behind them.
- Reports: one per disciple per day; draft -> submitted -> validated.
- Disciples: fidele, fd, leader, pasteur and admin roles linked by supervisor.
- Units: region > zone > local > sub.
- Visibility: you see your own records and those of the disciples you supervise.
Run 'suivi stub serve' for a local backend and 'suivi stub token <id>' to sign in.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SUIVI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("dir", "d", ".", "directory holding "+config.FileName)
	flags.Bool("json", false, "output JSON")
	flags.String("base-url", "", "reporting API base URL (overrides config)")
	flags.String("token", "", "session token (overrides config)")
	flags.String("jwt-secret", "", "secret used to verify or mint session tokens (overrides config)")
	flags.String("log-level", "", "debug, info, warn or error (overrides config)")
	for _, name := range []string{"dir", "json", "base-url", "token", "jwt-secret", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(reportsCmd())
	rootCmd.AddCommand(disciplesCmd())
	rootCmd.AddCommand(unitsCmd())
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(stubCmd())
}

// loadConfig reads suivi.yml when present and applies flag and env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("dir"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("base-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetString("token"); v != "" {
		cfg.Auth.Token = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withSession(ctx context.Context, fn func(context.Context, *app.Session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}
	s, err := app.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage " + config.FileName,
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("dir"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Token != "" {
				cfg.Auth.Token = "***"
			}
			if cfg.Auth.JWTSecret != "" {
				cfg.Auth.JWTSecret = "***"
			}
			return printJSON(cfg)
		},
	}
}

// validateResult is the --json body of config validate. The error key is
// present only when validation failed.
func validateResult(err error) map[string]any {
	out := map[string]any{"ok": err == nil}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate " + config.FileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("dir"))
			if err == nil {
				err = cfg.Stub.Seed.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(validateResult(err))
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
