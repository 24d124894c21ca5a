// Command useradminctl runs operator tasks against the user administration database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/config"
	"github.com/and161185/useradmin/internal/logger"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository/postgres"
	"github.com/and161185/useradmin/internal/service"
)

var version = "dev"

// accounts is the slice of the user service the CLI needs.
type accounts interface {
	Create(ctx context.Context, actor model.Claims, in service.AccountInput) (int64, error)
}

// auditLog is the slice of the audit service the CLI needs.
type auditLog interface {
	PurgeOlderThan(ctx context.Context, actor model.Claims, days int) (int64, error)
	Export(ctx context.Context, actor model.Claims, f model.AuditFilter, w io.Writer) (int, error)
	ExportFileName() string
}

// backend holds the services a command runs against.
type backend struct {
	users accounts
	audit auditLog
	close func()
}

// Close releases the connection pool, if any.
func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// app carries state shared by every subcommand.
type app struct {
	cfgPath string
	log     *zap.Logger

	// connect opens the services; tests replace it.
	connect func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error)
	// migrate applies pending migrations; pending only reports them.
	migrate func(ctx context.Context, cfg *config.Config, log *zap.Logger, pending bool) (int, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{connect: connectPostgres, migrate: runMigrations}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "useradminctl",
		Short:         "Operator tasks for the user administration service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file; USERADMIN_* env vars override it")

	root.AddCommand(
		newMigrateCmd(a),
		newCreateAdminCmd(a),
		newPurgeLogsCmd(a),
		newExportLogsCmd(a),
		newHashPasswordCmd(),
	)
	return root
}

// setup loads configuration and the logger for commands that touch the database.
func (a *app) setup() (*config.Config, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, err
	}
	if a.log == nil {
		if a.log, err = logger.New(cfg.App.Debug, zap.String("service", "useradminctl")); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (a *app) open(ctx context.Context) (*backend, *config.Config, error) {
	cfg, err := a.setup()
	if err != nil {
		return nil, nil, err
	}
	b, err := a.connect(ctx, cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return b, cfg, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	db, err := postgres.New(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	users := postgres.NewUserRepo(db)
	return &backend{
		users: service.NewUserService(users, postgres.NewRoleRepo(db), log),
		audit: service.NewAuditService(postgres.NewAuditRepo(db), users, log, cfg.Audit.DefaultRangeDays),
		close: db.Close,
	}, nil
}
