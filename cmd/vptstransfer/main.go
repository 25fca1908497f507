// Command vptstransfer copies vertical-profile files from a remote SFTP
// drop directory into an S3 bucket, skipping files that were uploaded by
// an earlier run. Endpoint settings come from a yaml file; the SFTP
// password comes from the SFTP_PASSWORD environment variable.
//
// Usage:
//
//	SFTP_PASSWORD=... vptstransfer -config transfer.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aeroecology/vpts-etl/internal/config"
	"github.com/aeroecology/vpts-etl/internal/notify"
	"github.com/aeroecology/vpts-etl/internal/observability"
	"github.com/aeroecology/vpts-etl/internal/transfer"
)

func main() {
	configPath := flag.String("config", "", "path to the yaml endpoint configuration")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	os.Exit(run(cfg, logger, metrics, *configPath))
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, configPath string) int {
	fileCfg, err := transfer.LoadFile(configPath)
	if err != nil {
		logger.Error("endpoint config invalid", "error", err)
		return 1
	}
	if cfg.SFTPPassword == "" {
		logger.Error("SFTP_PASSWORD is not set")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	source, err := transfer.DialSFTP(fileCfg.SFTP.Addr, fileCfg.SFTP.User, cfg.SFTPPassword, fileCfg.SFTP.Dir)
	if err != nil {
		logger.Error("sftp connect failed", "addr", fileCfg.SFTP.Addr, "error", err)
		return 1
	}
	defer source.Close()

	sink, err := transfer.NewS3Sink(ctx, fileCfg.Bucket)
	if err != nil {
		logger.Error("s3 setup failed", "bucket", fileCfg.Bucket, "error", err)
		return 1
	}

	tempDir, err := os.MkdirTemp("", "vptstransfer-*")
	if err != nil {
		logger.Error("temp dir failed", "error", err)
		return 1
	}
	defer os.RemoveAll(tempDir)

	mover := transfer.NewMover(source, sink, fileCfg.Source, tempDir, logger, metrics)
	rep, err := mover.Run(ctx)
	if err != nil {
		logger.Error("transfer run failed", "error", err)
		return 1
	}

	logger.Info("transfer finished",
		"considered", rep.Considered,
		"transferred", rep.Transferred,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
	)

	if err := metrics.Push(cfg.PushgatewayURL, "vptstransfer"); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
	publishReport(cfg, logger, rep, fileCfg.Bucket, start)

	if rep.Failed > 0 && rep.Transferred == 0 {
		return 1
	}
	return 0
}

func publishReport(cfg *config.Config, logger *slog.Logger, rep transfer.Report, bucket string, start time.Time) {
	if !cfg.NotifyEnabled {
		return
	}

	reporter := notify.NewReporter(cfg, logger)
	defer reporter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := notify.RunReport{
		Command:    "vptstransfer",
		StartedAt:  start.UTC(),
		FinishedAt: time.Now().UTC(),
		Processed:  rep.Considered,
		Succeeded:  rep.Transferred,
		Output:     bucket,
	}
	if err := reporter.Publish(ctx, report); err != nil {
		logger.Warn("run report publish failed", "error", err)
	}
}
