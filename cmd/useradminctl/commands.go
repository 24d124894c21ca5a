package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/config"
	"github.com/and161185/useradmin/internal/crypto"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/migrate"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/service"
)

const dateLayout = "2006-01-02"

// passwordEnv lets scripts pass a password without exposing it in argv.
const passwordEnv = "USERADMIN_ADMIN_PASSWORD"

func runMigrations(ctx context.Context, cfg *config.Config, log *zap.Logger, pending bool) (int, error) {
	if pending {
		return migrate.Pending(ctx, cfg.Database.DSN)
	}
	return 0, migrate.Up(ctx, cfg.Database.DSN, log)
}

func newMigrateCmd(a *app) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.setup()
			if err != nil {
				return err
			}
			n, err := a.migrate(cmd.Context(), cfg, a.log, status)
			if err != nil {
				return err
			}
			if status {
				fmt.Fprintf(cmd.OutOrStdout(), "%d pending migration(s)\n", n)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only report pending migrations")
	return cmd
}

func newCreateAdminCmd(a *app) *cobra.Command {
	var in service.AccountInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an active account in the Admin group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv(passwordEnv)
			}
			if in.Password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("password: %w", err)
				}
				in.Password = p
			}
			in.ConfirmPassword = in.Password
			in.RoleID = model.RoleAdmin
			in.IsActive = true

			b, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			id, err := b.users.Create(cmd.Context(), service.SystemActor, in)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q with id %d\n", in.Username, id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.FullName, "full-name", "", "display name")
	f.StringVar(&in.PhoneNo, "phone", "", "phone number")
	f.StringVar(&in.Password, "password", "", "password (default $"+passwordEnv+", then stdin)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("full-name")
	return cmd
}

func newPurgeLogsCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge-logs",
		Short: "Delete audit entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, cfg, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if !cmd.Flags().Changed("days") {
				days = cfg.Audit.PurgeKeepDays
			}
			n, err := b.audit.PurgeOlderThan(cmd.Context(), service.SystemActor, days)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.PurgeMessage(n, days))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "days to keep (default audit.purge_keep_days)")
	return cmd
}

func newExportLogsCmd(a *app) *cobra.Command {
	var (
		userID   int64
		from, to string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export-logs",
		Short: "Write audit entries as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := exportFilter(userID, from, to)
			if err != nil {
				return err
			}
			b, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if st, err := os.Stat(out); err == nil && st.IsDir() {
					out = filepath.Join(out, b.audit.ExportFileName())
				}
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			n, err := b.audit.Export(cmd.Context(), service.SystemActor, f, w)
			if err != nil {
				return describe(err)
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", n, out)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&userID, "user", 0, "only this user id")
	fl.StringVar(&from, "from", "", "first login day, YYYY-MM-DD")
	fl.StringVar(&to, "to", "", "last login day, YYYY-MM-DD, inclusive")
	fl.StringVarP(&out, "out", "o", "", "output file or directory (default stdout)")
	return cmd
}

// exportFilter builds a filter whose To bound is the day after to.
func exportFilter(userID int64, from, to string) (model.AuditFilter, error) {
	f := model.AuditFilter{UserID: userID}
	if userID < 0 {
		return f, errors.New("--user must not be negative")
	}
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.To = t.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return f, errors.New("--from must not be after --to")
	}
	return f, nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a salted hash pair for seeding accounts by hand",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				plain = p
			}
			if plain == "" {
				return errors.New("empty password")
			}
			hash, salt, err := crypto.SetPassword(plain)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password_hash=%s\npassword_salt=%s\n", hash, salt)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe flattens validation failures into one readable error.
func describe(err error) error {
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+ve.Fields[k])
	}
	return errors.New(strings.Join(parts, "; "))
}
