// Command report prints the current trend, sentiment and headline view as
// JSON. It runs once and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/app"
	"github.com/citygraph/newsminer/internal/platform/config"
	db "github.com/citygraph/newsminer/internal/storage"
)

func main() {
	topicsFlag := flag.String("topics", "", "Comma-separated topics for per-topic sentiment")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	var topics []string

	for _, topic := range strings.Split(*topicsFlag, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}

	report, err := app.New(cfg, database, &logger).BuildReport(ctx, topics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build report")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode report")
	}
}
