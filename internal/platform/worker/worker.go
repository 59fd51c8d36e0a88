// Package worker runs the background loops that drive ingestion, analysis
// and trend detection. Each task gets its own ticker; the loop owns context
// cancellation and panic recovery so one bad cycle never kills the process.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// pollInterval is the sleep between ticker checks to avoid busy-waiting.
const pollInterval = 100 * time.Millisecond

// Task is one periodic unit of work.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart triggers the task once immediately when the loop starts.
	RunOnStart bool
	Run        func(ctx context.Context)
}

// Config configures a worker loop.
type Config struct {
	Name   string
	Tasks  []Task
	Logger *zerolog.Logger
}

// Loop runs every task on its own ticker until the context is canceled.
// Returns a wrapped context error on shutdown.
func Loop(ctx context.Context, cfg Config) error {
	logger := getLogger(cfg.Logger)
	logger.Info().Str("worker", cfg.Name).Int("tasks", len(cfg.Tasks)).Msg("starting worker loop")

	defer logger.Info().Str("worker", cfg.Name).Msg("worker loop stopped")

	if len(cfg.Tasks) == 0 {
		<-ctx.Done()

		return fmt.Errorf("worker loop %s: %w", cfg.Name, ctx.Err())
	}

	tickers := make([]*time.Ticker, len(cfg.Tasks))

	for i, task := range cfg.Tasks {
		if task.Interval > 0 {
			tickers[i] = time.NewTicker(task.Interval)
		}
	}

	defer func() {
		for _, t := range tickers {
			if t != nil {
				t.Stop()
			}
		}
	}()

	for i, task := range cfg.Tasks {
		if task.RunOnStart && task.Run != nil && tickers[i] != nil {
			runTask(ctx, task, logger)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("worker loop %s: %w", cfg.Name, ctx.Err())
		default:
		}

		for i, task := range cfg.Tasks {
			if tickers[i] == nil || task.Run == nil {
				continue
			}

			select {
			case <-tickers[i].C:
				runTask(ctx, task, logger)
			default:
			}
		}

		if err := Wait(ctx, pollInterval); err != nil {
			return err
		}
	}
}

func runTask(ctx context.Context, task Task, logger *zerolog.Logger) {
	defer RecoverPanic(logger, task.Name)

	logger.Debug().Str("task", task.Name).Msg("running task")
	task.Run(ctx)
}

// Wait blocks until d elapses or the context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "task name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}

func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}
