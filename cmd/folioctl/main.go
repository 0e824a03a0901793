// Command folioctl is the operator CLI: schema migrations, content
// checks, development tokens and content export.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/keithlinneman/folio/internal/cfg"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/store"
	v "github.com/keithlinneman/folio/internal/version"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app carries the shared config into every subcommand.
type app struct {
	conf    cfg.App
	flags   *flag.FlagSet
	envFile string
	logger  log.Logger

	// openStore is swapped in tests.
	openStore func(ctx context.Context) (store.Store, func(), error)
}

func newApp() *app {
	a := &app{flags: flag.NewFlagSet("folioctl", flag.ContinueOnError)}
	cfg.Register(a.flags, &a.conf)
	a.openStore = a.postgresStore
	return a
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "folioctl",
		Short:             "Operate a folio deployment",
		Version:           v.Get().Short(),
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}
	root.PersistentFlags().AddGoFlagSet(a.flags)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before environment fill")
	root.AddCommand(a.migrateCmd(), a.contentCmd(), a.tokenCmd(), a.exportCmd())
	return root
}

// setup applies cli > env > default precedence. Flags parsed by pflag
// are replayed into the Go FlagSet so FillFromEnv sees them as explicit.
func (a *app) setup(cmd *cobra.Command) error {
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if a.flags.Lookup(f.Name) != nil {
			_ = a.flags.Set(f.Name, f.Value.String())
		}
	})
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return xerrors.Wrapf(err, "load %s", a.envFile)
	}
	stderr := cmd.ErrOrStderr()
	cfg.FillFromEnv(a.flags, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	})

	lvl, err := log.ParseLevel(a.conf.LogLevel)
	if err != nil {
		return err
	}
	lg, err := log.New(log.Options{App: v.AppName, Level: lvl, Writer: stderr})
	if err != nil {
		return err
	}
	a.logger = lg.With("component", "folioctl")
	return nil
}

func (a *app) withDB(ctx context.Context, fn func(*sqlx.DB) error) error {
	if a.conf.DatabaseURL == "" {
		return xerrors.New("--database-url (or FOLIO_DATABASE_URL) is required")
	}
	db, err := store.Open(ctx, a.conf.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *app) postgresStore(ctx context.Context) (store.Store, func(), error) {
	if a.conf.DatabaseURL == "" {
		return nil, nil, xerrors.New("--database-url (or FOLIO_DATABASE_URL) is required")
	}
	db, err := store.Open(ctx, a.conf.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
