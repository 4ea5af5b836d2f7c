package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	"github.com/spf13/cobra"
)

type options struct {
	configPath    string
	migrationsDir string
	table         string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply schema migrations and seeds",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.PersistentFlags().StringVar(&opts.migrationsDir, "dir", "assets/migrations", "directory containing migration files")
	cmd.PersistentFlags().StringVar(&opts.table, "table", "", "migration bookkeeping table (e.g. seed_migrations for assets/seeds)")

	for _, action := range []struct{ use, short string }{
		{"up", "Apply all pending migrations"},
		{"down", "Revert all applied migrations"},
		{"drop", "Drop everything in the database"},
		{"version", "Print the current migration version"},
	} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return run(action.use, opts)
			},
		})
	}
	return cmd
}

func run(action string, opts options) error {
	if _, err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	cfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		return err
	}

	if err := runMigration(action, opts.migrationsDir, databaseURL(cfg.Database.DSN(), opts.table)); err != nil {
		return fmt.Errorf("migration %s failed: %w", action, err)
	}

	log.Printf("migration %s completed (dir=%s)", action, opts.migrationsDir)
	return nil
}

// databaseURL は golang-migrate の x-migrations-table を付与した接続文字列を返します。
func databaseURL(dsn, table string) string {
	if table == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()
	return u.String()
}

func runMigration(action, dir, dsn string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Printf("no migration applied")
				return nil
			}
			return err
		}
		log.Printf("version=%d dirty=%t", version, dirty)
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}
