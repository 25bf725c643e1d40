// Package cli implements principalctl, which manages principals directly in
// the registry's SQLite store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	internaldb "principal-registry/internal/db"
	"principal-registry/internal/db/repository"
	"principal-registry/internal/domain"
	"principal-registry/internal/service/security"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{"error": err.Error()}
			if kind := errorKind(err); kind != "" {
				errObj["kind"] = kind
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func errorKind(err error) string {
	var (
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		validation *domain.ValidationError
		internal   *domain.InternalError
	)
	switch {
	case errors.As(err, &notFound):
		return "NOT_FOUND"
	case errors.As(err, &conflict):
		return "ALREADY_EXISTS"
	case errors.As(err, &validation):
		return "INVALID_ARGUMENT"
	case errors.As(err, &internal):
		return "INTERNAL"
	default:
		return ""
	}
}

// globals holds the resolved persistent flags.
type globals struct {
	db        string
	output    string
	as        string
	profile   string
	blockSize int
	verbose   bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "principalctl",
		Short:         "Manage principals in a registry store",
		Long:          "principalctl creates, inspects and updates principals directly in the registry's SQLite store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			p := cfg.ActiveProfile(g.profile)

			// Apply precedence: flag > env > profile > default
			resolve := func(flag, env, fromProfile, def string, dst *string) {
				if cmd.Flags().Changed(flag) {
					return
				}
				switch {
				case os.Getenv(env) != "":
					*dst = os.Getenv(env)
				case fromProfile != "":
					*dst = fromProfile
				default:
					*dst = def
				}
			}
			resolve("db", "META_DB_PATH", p.DB, "principals.sqlite", &g.db)
			resolve("output", "PRINCIPALCTL_OUTPUT", p.Output, defaultOutputFormat(), &g.output)
			resolve("as", "PRINCIPALCTL_AS", p.As, "", &g.as)
			if err := cmd.Root().PersistentFlags().Set("output", g.output); err != nil {
				return err
			}
			return validateOutputFormat(g.output)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.db, "db", "", "Path to the SQLite store (env META_DB_PATH)")
	pf.StringVarP(&g.output, "output", "o", "", "Output format (table, json); default table on a terminal")
	pf.StringVar(&g.as, "as", "", "Act as the caller with this email (recorded in the audit log)")
	pf.StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
	pf.IntVar(&g.blockSize, "block-size", 0, "Rows fetched per listing block (default 100)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log store activity to stderr")

	rootCmd.AddCommand(
		newCreateCmd(g),
		newGetCmd(g),
		newGetByEmailCmd(g),
		newListCmd(g),
		newUpdateCmd(g),
		newDeleteCmd(g),
		newAuditCmd(g),
		newWhoamiCmd(g),
		newMigrateCmd(g),
	)
	return rootCmd
}

// callerContext attaches the --as identity to ctx.
func (g *globals) callerContext(ctx context.Context) context.Context {
	if g.as == "" {
		return ctx
	}
	return domain.WithCaller(ctx, domain.CallerIdentity{Subject: g.as, Issuer: "principalctl", Email: g.as})
}

func (g *globals) logger(cmd *cobra.Command) *slog.Logger {
	if !g.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openStore opens and migrates the store named by --db.
func (g *globals) openStore(cmd *cobra.Command) (*internaldb.Store, error) {
	store, err := internaldb.Open(g.db, 1)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", g.db, err)
	}
	if err := internaldb.MigrateWithRetry(cmd.Context(), store.Write, g.logger(cmd)); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate %s: %w", g.db, err)
	}
	return store, nil
}

// withService runs fn against a principal service over the --db store.
func (g *globals) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *security.PrincipalService) error) error {
	store, err := g.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	logger := g.logger(cmd)
	exec := internaldb.NewTxExecutor(store, logger)
	svc := security.NewPrincipalService(repository.NewUnitOfWork(exec), g.blockSize, logger)
	return fn(g.callerContext(cmd.Context()), svc)
}
