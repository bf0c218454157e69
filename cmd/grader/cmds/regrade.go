package cmds

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackcomp/grading-api/internal/audit"
	"github.com/hackcomp/grading-api/internal/bundle"
	"github.com/hackcomp/grading-api/internal/config"
	"github.com/hackcomp/grading-api/internal/grading"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/sandbox"
	"github.com/hackcomp/grading-api/internal/store"
	"github.com/hackcomp/grading-api/internal/upload"
	"github.com/hackcomp/grading-api/internal/weights"
)

const (
	ledgerFileName = "scored_tests.csv"
	totalsFileName = "final_scores.csv"
)

var regradeCmd = &cobra.Command{
	Use:   "regrade",
	Short: "Regrade every stored submission against the official tests",
	Long: `
Runs the full roster through the sandbox and writes scored_tests.csv and
final_scores.csv to the configured output directory.

- Exits 0 when the run completes, even if teams scored zero.
- Exits 1 only when the grading environment itself is broken.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "regradeCmd")
		defer span.End()

		cfg, err := config.GetConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return fmt.Errorf("failed to load config: %w", err)
		}

		submissions := store.NewSubmissionStore(cfg.Paths.Submissions)
		problems := store.NewProblemStore(cfg.Paths.Problems, cfg.Paths.ProblemTemplate)
		weightScanner := weights.NewScanner(problems, nil)
		packager := bundle.NewPackager(cfg.Paths.Utils, problems, submissions)

		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = cfg.Sandbox.RetryMax
		retryClient.RetryWaitMin = 100 * time.Millisecond
		retryClient.RetryWaitMax = 5 * time.Second
		retryClient.Logger = nil

		sandboxClient := sandbox.NewClient(
			retryClient.StandardClient(),
			cfg.Sandbox.URL,
			cfg.Sandbox.LanguageID,
			cfg.Sandbox.Timeout,
		)

		var uploader upload.Uploader
		var archiver grading.BundleArchiver
		if cfg.S3Archive != nil && cfg.S3Archive.Enabled {
			minioUploader, err := upload.NewMinioUploader(
				cfg.S3Archive.Endpoint,
				cfg.S3Archive.AccessKeyID,
				cfg.S3Archive.SecretAccessKey,
				cfg.S3Archive.SSLEnabled,
				cfg.S3Archive.BucketName,
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to construct archiver")
				return err
			}

			backoff := func() retry.Backoff {
				b := retry.NewFibonacci(time.Millisecond * 25)
				b = retry.WithMaxRetries(3, b)
				return b
			}
			uploader = upload.NewRetryUploaderBackoff(minioUploader, backoff)
			archiver = upload.NewBundleArchive(uploader)
		}

		aggregator := grading.NewAggregator(
			packager,
			sandboxClient,
			weightScanner,
			archiver,
			cfg.Grading.Concurrency,
		)

		teams := make([]string, 0, len(cfg.Teams))
		for _, team := range cfg.Teams {
			if team.Active != nil && *team.Active {
				teams = append(teams, team.Name)
			}
		}

		problemCount, err := problems.Count(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to count problems")
			return fmt.Errorf("failed to count problems: %w", err)
		}

		span.SetAttributes(
			attribute.Int("teams", len(teams)),
			attribute.Int("problems", problemCount),
		)

		audit.LogGradingRunStarted(audit.Context{}, len(teams), problemCount)

		ledger, err := aggregator.GradeAll(ctx, teams, problemCount)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "grading run failed")
			return fmt.Errorf("grading run failed: %w", err)
		}

		audit.LogGradingRunCompleted(
			audit.Context{},
			len(ledger.Rows),
			ledger.Summary.MissingSubmissions,
			ledger.Summary.InfrastructureFailures,
		)

		if err := os.MkdirAll(cfg.Paths.Output, 0o755); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create output directory")
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		ledgerPath := filepath.Join(cfg.Paths.Output, ledgerFileName)
		if err := writeCSV(ledgerPath, func(f *os.File) error {
			return grading.WriteLedgerCSV(f, ledger)
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write ledger")
			return err
		}

		totalsPath := filepath.Join(cfg.Paths.Output, totalsFileName)
		if err := writeCSV(totalsPath, func(f *os.File) error {
			return grading.WriteTotalsCSV(f, ledger.Rollup())
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write totals")
			return err
		}

		if uploader != nil {
			archiveCSV(cmd, uploader, ledgerPath, cfg)
			archiveCSV(cmd, uploader, totalsPath, cfg)
		}

		logger.Logger.InfoContext(ctx, "grading run complete",
			"rows", len(ledger.Rows),
			"missingSubmissions", ledger.Summary.MissingSubmissions,
			"infrastructureFailures", ledger.Summary.InfrastructureFailures,
			"ledger", ledgerPath,
			"totals", totalsPath,
		)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "grading run complete")
		return nil
	},
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

// Best effort, a run whose exports exist locally has succeeded.
func archiveCSV(cmd *cobra.Command, uploader upload.Uploader, path string, cfg *config.Config) {
	ctx := cmd.Context()

	objectName, err := upload.HashedFile(ctx, uploader, path)
	if err != nil {
		logger.Logger.WarnContext(ctx, "failed to archive export", "path", path, "error", err)
		return
	}

	audit.LogFileArchived(audit.Context{}, cfg.S3Archive.BucketName, objectName, filepath.Base(path))
}

func init() {
	rootCmd.AddCommand(regradeCmd)
}
