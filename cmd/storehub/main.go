// Package main - точка входа CLI storehub.
//
// storehub ведёт склад магазина в закодированном файле и журнал оценок:
//   - encode/decode преобразуют текст с заданным ключом
//   - save/load/list/add/sell/restock работают с файлом склада
//   - snapshot/history/restore используют историю снимков в PostgreSQL
//   - enroll/mark/average/class-average ведут журнал оценок
//   - migrate применяет миграции базы данных
//
// PostgreSQL и Redis подключаются, только если они настроены.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coursework/storehub/config"
	"github.com/coursework/storehub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "storehub: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		return nil
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		return usageErrorf("unknown command %q", args[0])
	}
	if err := cmd.checkArgs(args[1:]); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg, stderr)
	log.Debug("starting storehub",
		"command", cmd.name,
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	if cfg.App.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.App.CommandTimeout)
		defer cancel()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. СБОРКА ЗАВИСИМОСТЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	a, err := newApp(ctx, cfg, log, setupServiceLogger(cfg, stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	a.in = stdin
	a.out = stdout

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ВЫПОЛНЕНИЕ КОМАНДЫ
	// ─────────────────────────────────────────────────────────────────────────
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		log.Debug("command failed", "command", cmd.name, "error", err)
		return err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает логирование процесса (slog).
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(cfg)}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	log := slog.New(handler).With("app", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

func slogLevel(cfg *config.Config) slog.Level {
	if cfg.App.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupServiceLogger настраивает структурированный логгер сервисов.
// Уровень по умолчанию - warn, чтобы не засорять вывод команд.
func setupServiceLogger(cfg *config.Config, w io.Writer) *logger.Logger {
	level := logger.LevelWarn
	if cfg.App.Debug {
		level = logger.LevelDebug
	} else if parsed := logger.ParseLevel(cfg.Observability.LogLevel); parsed > level {
		level = parsed
	}
	return logger.New(logger.Options{
		Output:    w,
		Level:     level,
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name))
}

// usageError - ошибка в аргументах командной строки.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode возвращает 2 для ошибок использования и 1 для остальных.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}
