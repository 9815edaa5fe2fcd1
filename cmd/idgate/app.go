package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/config"
	"github.com/xxxsen/idgate/internal/db"
	"github.com/xxxsen/idgate/internal/job"
	"github.com/xxxsen/idgate/internal/pkg/password"
	"github.com/xxxsen/idgate/internal/repo"
	"github.com/xxxsen/idgate/internal/schedule"
	"github.com/xxxsen/idgate/internal/service"
)

type app struct {
	verifier  *service.EmailVerificationService
	sessions  *service.SessionGuard
	auth      *service.AuthService
	passwords *service.PasswordService
	admin     *service.AccountAdminService
	scheduler *schedule.CronScheduler
	closeFn   func()
}

func (a *app) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (service.AccountStore, service.VerificationStore, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logutil.GetLogger(ctx).Warn("using in-memory store, data is lost on exit")
		return repo.NewMemoryAccountRepo(), repo.NewMemoryVerificationRepo(), func() {}, nil
	}
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return repo.NewAccountRepo(conn), repo.NewVerificationRepo(conn), closer(conn), nil
}

func closer(conn *sql.DB) func() {
	return func() { _ = conn.Close() }
}

func newMailer(ctx context.Context, cfg config.MailConfig) service.VerificationMailer {
	if cfg.Host == "" {
		logutil.GetLogger(ctx).Warn("mail.host not set, verification messages go to the log")
		return service.NewLogMailer()
	}
	return service.NewVerificationMailer(service.NewEmailSender(cfg), cfg.LinkBase)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Auth.BcryptCost != 0 {
		password.SetCost(cfg.Auth.BcryptCost)
	}
	accounts, records, closeFn, err := openStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	secret := []byte(cfg.JWTSecret)
	admission := service.NewAdmissionPolicy(cfg.Auth.AllowedDomains)
	verifier := service.NewEmailVerificationService(records, accounts, newMailer(ctx, cfg.Mail), admission, secret)
	sessions := service.NewSessionGuard(accounts, secret, time.Hour*time.Duration(cfg.JWTTTLHours))

	a := &app{
		verifier:  verifier,
		sessions:  sessions,
		auth:      service.NewAuthService(accounts, verifier, admission, sessions),
		passwords: service.NewPasswordService(accounts, verifier, secret),
		admin:     service.NewAccountAdminService(accounts),
		scheduler: schedule.NewCronScheduler(),
		closeFn:   closeFn,
	}
	if err := a.scheduler.AddJob(job.NewVerificationPurgeJob(verifier), cfg.Auth.PurgeCron); err != nil {
		a.Close()
		return nil, fmt.Errorf("schedule purge job: %w", err)
	}
	logutil.GetLogger(ctx).Info("app initialized",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("allowed_domains", cfg.Auth.AllowedDomains),
	)
	return a, nil
}
