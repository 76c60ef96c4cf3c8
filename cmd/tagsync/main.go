package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tagsync/internal/adapters/downloader"
	"tagsync/internal/adapters/localstorage"
	"tagsync/internal/adapters/rapidapi"
	"tagsync/internal/adapters/socialverse"
	"tagsync/internal/config"
	"tagsync/internal/core/domain"
	"tagsync/internal/service"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, environment variables might be set manually
		log.Println("No .env file found")
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapConfig.OutputPaths = []string{"stderr", "tagsync.log"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	// All secrets are checked here, before any network call.
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("configuration error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Hashtag Video Sync ===")
	tags, perTag, err := promptInputs(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Initialize adapters
	searcher := rapidapi.NewClient(cfg, logger)
	dl := downloader.NewHTTPDownloader(logger)
	uploader := socialverse.NewUploader(cfg, logger)
	storage := localstorage.NewLocalStorage(cfg.DataDir)

	orchestrator := service.NewOrchestrator(searcher, dl, uploader, storage, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := orchestrator.Run(ctx, tags, perTag)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(summary)
}

// promptInputs reads the comma-separated hashtags and per-tag count from
// the interactive terminal.
func promptInputs(in io.Reader) ([]string, int, error) {
	reader := bufio.NewReader(in)

	fmt.Print("Enter hashtags (comma-separated): ")
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, 0, fmt.Errorf("failed to read hashtags: %w", err)
	}
	tags := parseTags(line)
	if len(tags) == 0 {
		return nil, 0, errors.New("at least one hashtag is required")
	}

	fmt.Print("Enter number of videos per tag: ")
	line, err = reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, 0, fmt.Errorf("failed to read count: %w", err)
	}
	perTag, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || perTag <= 0 {
		return nil, 0, errors.New("number of videos must be a positive integer")
	}

	return tags, perTag, nil
}

// parseTags splits a comma-separated hashtag list, trimming whitespace,
// leading '#' marks and empty entries.
func parseTags(line string) []string {
	var tags []string
	for _, part := range strings.Split(line, ",") {
		tag := strings.TrimPrefix(strings.TrimSpace(part), "#")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func printSummary(summary *domain.RunSummary) {
	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Run ID:       %s\n", summary.RunID)
	for _, r := range summary.Reports {
		fmt.Printf("  #%-20s searched=%d downloaded=%d uploaded=%d failed=%d\n",
			r.Hashtag, r.Searched, r.Downloaded, r.Uploaded, r.Failed)
	}
	totals := summary.Totals()
	fmt.Printf("Totals:       searched=%d downloaded=%d uploaded=%d failed=%d\n",
		totals.Searched, totals.Downloaded, totals.Uploaded, totals.Failed)
	fmt.Printf("Completed At: %s\n", summary.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
}
