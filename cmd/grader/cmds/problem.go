package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackcomp/grading-api/internal/config"
	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/store"
)

var problemCmd = &cobra.Command{
	Use:   "problem",
	Short: "Manage the problem directories",
}

var problemCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Scaffold the next problem directory from the configured template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "problemCreateCmd")
		defer span.End()

		cfg, err := config.GetConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return fmt.Errorf("failed to load config: %w", err)
		}

		problems := store.NewProblemStore(cfg.Paths.Problems, cfg.Paths.ProblemTemplate)

		number, err := problems.Create(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create problem")
			return fmt.Errorf("failed to create problem: %w", err)
		}

		span.SetAttributes(attribute.Int("problem", number))
		logger.Logger.InfoContext(ctx, "created problem", "problem", number)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "created problem")
		return nil
	},
}

func init() {
	problemCmd.AddCommand(problemCreateCmd)
	rootCmd.AddCommand(problemCmd)
}
