package cmds

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/hackcomp/grading-api/cmd/grader/cmds")

var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "Offline grading operations against the sandbox",
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
