package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/config"
	"github.com/xxxsen/idgate/internal/handler"
	"github.com/xxxsen/idgate/internal/job"
	"github.com/xxxsen/idgate/internal/middleware"
	"github.com/xxxsen/idgate/internal/model"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "idgate",
		Short: "identity and session service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newPurgeCmd(&configPath),
		newAccountCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func withApp(configPath *string, fn func(ctx context.Context, cfg *config.Config, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cfg, a)
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE:  withApp(configPath, runServer),
	}
}

func newPurgeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "remove expired verification records once",
		RunE: withApp(configPath, func(ctx context.Context, cfg *config.Config, a *app) error {
			return a.scheduler.RunNow(ctx, job.NewVerificationPurgeJob(a.verifier).Name())
		}),
	}
}

func newAccountCmd(configPath *string) *cobra.Command {
	var email, role string
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "administer accounts",
	}
	roleCmd := &cobra.Command{
		Use:   "role",
		Short: "change the role of an account",
		RunE: withApp(configPath, func(ctx context.Context, cfg *config.Config, a *app) error {
			return a.admin.SetRole(ctx, email, model.Role(role))
		}),
	}
	roleCmd.Flags().StringVar(&email, "email", "", "account email")
	roleCmd.Flags().StringVar(&role, "role", "", "viewer, editor or admin")
	_ = roleCmd.MarkFlagRequired("email")
	_ = roleCmd.MarkFlagRequired("role")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "delete an account, ending its sessions",
		RunE: withApp(configPath, func(ctx context.Context, cfg *config.Config, a *app) error {
			return a.admin.Delete(ctx, email)
		}),
	}
	deleteCmd.Flags().StringVar(&email, "email", "", "account email")
	_ = deleteCmd.MarkFlagRequired("email")

	accountCmd.AddCommand(roleCmd, deleteCmd)
	return accountCmd
}

func runServer(ctx context.Context, cfg *config.Config, a *app) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	deps := handler.RouterDeps{
		Auth:     handler.NewAuthHandler(a.auth, a.verifier, a.sessions, a.passwords),
		Sessions: a.sessions,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
