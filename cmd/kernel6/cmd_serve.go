package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/kernel6/internal/config"
	"github.com/user/kernel6/internal/conversation"
	"github.com/user/kernel6/internal/deletion"
	"github.com/user/kernel6/internal/delivery"
	"github.com/user/kernel6/internal/gateway"
	"github.com/user/kernel6/internal/scheduler"
	"github.com/user/kernel6/internal/telegram"
	"github.com/user/kernel6/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

const pidFileName = "kernel6.pid"

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if cfg.Telegram.Mode == config.ModeWebhook && !cfg.HTTP.Enabled {
		return errors.New("telegram webhook mode requires http.enabled")
	}
	idleTimeout, err := cfg.IdleTimeout()
	if err != nil {
		return err
	}
	if cfg.Admin.Password == "" {
		slog.Warn("admin.password is empty, report deletion is disabled")
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, accessServe)
	if err != nil {
		return err
	}

	// Replies are routed by session key prefix.
	deliveryReg := delivery.NewRegistry()

	orch := conversation.New(deliveryReg, store, conversation.Options{
		AdminPassword: cfg.Admin.Password,
		DeletePolicy:  deletion.Policy(cfg.Store.DeletePolicy),
	})

	gw := gateway.New(orch, int64(cfg.MaxConcurrent))
	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("kernel6 started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"store", cfg.StoreMode(),
		"delete_policy", cfg.Store.DeletePolicy,
		"telegram_mode", cfg.Telegram.Mode,
		"pid_file", pidPath,
	)

	httpOpts := []webhook.Option{
		webhook.WithStoreMode(string(store.Mode())),
		webhook.WithSessionCount(orch.Len),
	}

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		deliveryReg.Register("telegram:", adapter)

		switch cfg.Telegram.Mode {
		case config.ModeWebhook:
			if err := adapter.RegisterWebhook(cfg.WebhookEndpoint()); err != nil {
				return fmt.Errorf("register telegram webhook: %w", err)
			}
			httpOpts = append(httpOpts, webhook.WithUpdates(cfg.WebhookPath(), adapter.WebhookHandler(ctx)))
			slog.Info("telegram webhook registered", "bot", adapter.Username())
		default:
			go adapter.Start(ctx)
			slog.Info("telegram adapter started", "bot", adapter.Username())
		}
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Scheduler
	sched := scheduler.New()
	if err := sched.Add(scheduler.Job{
		Name:     "session-sweep",
		Schedule: cfg.Session.SweepSchedule,
		Enabled:  idleTimeout > 0,
		Run: func() {
			if n := orch.SweepIdle(time.Now(), idleTimeout); n > 0 {
				slog.Info("idle sessions dropped", "count", n, "remaining", orch.Len())
			}
		},
	}); err != nil {
		return fmt.Errorf("add session sweep: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started")

	// HTTP server
	if cfg.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           webhook.NewServer(store, httpOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
