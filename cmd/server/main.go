// Command useradmin-server starts the user administration web server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/blob"
	"github.com/and161185/useradmin/internal/config"
	"github.com/and161185/useradmin/internal/crypto/sealer"
	"github.com/and161185/useradmin/internal/limiter"
	"github.com/and161185/useradmin/internal/logger"
	"github.com/and161185/useradmin/internal/mail"
	"github.com/and161185/useradmin/internal/migrate"
	"github.com/and161185/useradmin/internal/repository/postgres"
	"github.com/and161185/useradmin/internal/server/httpapi"
	"github.com/and161185/useradmin/internal/service"
	"github.com/and161185/useradmin/internal/session"
	"github.com/and161185/useradmin/internal/telemetry"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfgPath := flag.String("config", "", "config file (yaml, toml or json); USERADMIN_* env vars override it")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.App.Debug, zap.String("service", cfg.App.Name))
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.App.Env,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if err := migrate.Up(ctx, cfg.Database.DSN, log); err != nil {
		return err
	}

	db, err := postgres.New(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	var lim limiter.Limiter = limiter.Nop{}
	if cfg.Limiter.MaxFails > 0 {
		lim = limiter.NewPG(db.Pool, limiter.Policy{
			Window:   cfg.Limiter.Window,
			MaxFails: cfg.Limiter.MaxFails,
			BlockFor: cfg.Limiter.BlockFor,
		})
	}

	master := []byte(cfg.Security.CookieKey)
	flash, err := sealer.New(master, "flash")
	if err != nil {
		return err
	}
	rememberKey, err := sealer.DeriveKey(master, "remember-me")
	if err != nil {
		return err
	}

	users := postgres.NewUserRepo(db)
	roles := postgres.NewRoleRepo(db)
	auditSvc := service.NewAuditService(postgres.NewAuditRepo(db), users, log, cfg.Audit.DefaultRangeDays)

	srv := httpapi.New(httpapi.Deps{
		Auth:     service.NewAuthService(users, auditSvc, lim, rememberKey, cfg.Security.RememberMeTTL, log),
		Reset:    service.NewResetService(users, mailer, cfg.Security.ResetTokenTTL, log),
		Users:    service.NewUserService(users, roles, log),
		Roles:    service.NewRoleService(roles, log),
		Audit:    auditSvc,
		Feedback: service.NewFeedbackService(postgres.NewFeedbackRepo(db), blobs, log),
		Sessions: session.NewRedisStore(rdb),
		Flash:    flash,
		Checks: map[string]httpapi.Check{
			"postgres": db.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: log,
	}, httpapi.Options{
		Cookie: session.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		},
		IdleTimeout:    cfg.Session.IdleTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
		TracerName:     cfg.OTel.ServiceName,
		DaysToKeep:     cfg.Audit.PurgeKeepDays,
	})

	hs := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			log.Warn("graceful shutdown", zap.Error(err))
			return hs.Close()
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newBlobStore(ctx context.Context, c config.BlobConfig) (blob.Store, error) {
	if c.Driver == "s3" {
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	}
	return blob.NewLocalStore(c.LocalDir)
}

// newMailer falls back to logging reset links when no SMTP host is configured
// outside production.
func newMailer(cfg *config.Config, log *zap.Logger) (mail.Mailer, error) {
	if cfg.SMTP.Host == "" {
		if !cfg.LogMailAllowed() {
			return nil, errors.New("smtp.host is required when app.env is production")
		}
		log.Warn("smtp.host is empty; reset links are written to the log")
		return mail.LogMailer{BaseURL: cfg.App.BaseURL, Log: log}, nil
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		BaseURL:  cfg.App.BaseURL,
	})
}
