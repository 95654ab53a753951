package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"roster-bot/internal/chat"
	"roster-bot/internal/config"
	"roster-bot/internal/scheduler"
	"roster-bot/internal/server"
	"roster-bot/internal/session"
	"roster-bot/internal/sheets"
	"roster-bot/internal/store"
	"roster-bot/internal/tgbot"
)

const (
	dbAttempts = 10
	dbPause    = time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("bye")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	started := time.Now()

	tg, err := chat.NewTelegram(cfg.TelegramToken, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	fatal := func(what string, err error) error {
		_ = tg.Send(ctx, cfg.MaintainerTGID, fmt.Sprintf("Bot cannot start, %s failed:\n%v", what, err), nil, chat.ModePlain)
		return fmt.Errorf("%s: %w", what, err)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fatal("database connection", err)
	}
	defer st.Close()

	sessions := session.New(st)
	if err := sessions.Load(ctx); err != nil {
		return fatal("loading states", err)
	}

	opts := []tgbot.Option{tgbot.WithLogger(logger)}
	if cfg.SheetsEnabled() {
		sc, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			return fatal("sheets", err)
		}
		opts = append(opts, tgbot.WithExporter(sheets.NewExporter(sc, st)))
		logger.Info("sheets export enabled", "spreadsheet", sc.SpreadsheetID())
	}
	bot := tgbot.New(cfg, tg, st, sessions, opts...)

	sched := scheduler.New(scheduler.Config{
		Schedule:       cfg.Schedule,
		Location:       cfg.Location,
		GroupChatID:    cfg.GroupChatID,
		MaintainerTGID: cfg.MaintainerTGID,
		Source:         st,
		Sessions:       sessions,
		Gateway:        tg,
		Runner:         bot,
		Logger:         logger,
	})
	if err := sched.Start(ctx); err != nil {
		return fatal("scheduler", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx, tg.Events(gctx))
	})

	if cfg.HTTPAddr != "" {
		srv := server.New(cfg.HTTPAddr, server.Routes(st, cfg.ExportSecret, started, logger))
		g.Go(func() error {
			logger.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// openStore retries the initial connection; the database container often
// comes up after the bot.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	var lastErr error
	for attempt := 1; attempt <= dbAttempts; attempt++ {
		st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN,
			store.WithLocation(cfg.Location), store.WithLogger(logger))
		if err == nil {
			logger.Info("database ready", "driver", cfg.DBDriver, "attempt", attempt)
			return st, nil
		}
		lastErr = err
		logger.Warn("database not ready", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbPause):
		}
	}
	return nil, lastErr
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
