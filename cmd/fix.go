package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rlin/internal/fixer"
	"github.com/gnolang/rlin/lint"
)

var (
	dryRun              bool
	confidenceThreshold float64
)

var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Automatically fix issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("please provide file or directory paths")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		// initialize the lint engine
		engine, _, err := newEngine("")
		if err != nil {
			return err
		}

		return runAutoFix(ctx, logger, engine, args, cmd.OutOrStdout(), dryRun, confidenceThreshold)
	},
}

func init() {
	fixCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run in dry-run mode (show fixes without applying them)")
	fixCmd.Flags().Float64Var(&confidenceThreshold, "confidence", 0.75, "Confidence threshold for auto-fixing (0.0 to 1.0)")
}

func runAutoFix(
	ctx context.Context,
	logger *zap.Logger,
	engine lint.LintEngine,
	paths []string,
	w io.Writer,
	dryRun bool,
	confidenceThreshold float64,
) error {
	fix := fixer.New(dryRun, confidenceThreshold)
	fix.Out = w

	var errs []error
	for _, path := range paths {
		issues, err := lint.ProcessPath(ctx, logger, engine, path, lint.ProcessFile)
		if err != nil {
			logger.Error("error processing path", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}

		issuesByFile, sortedFiles := groupByFile(issues)
		for _, filename := range sortedFiles {
			if err := fix.Fix(filename, issuesByFile[filename]); err != nil {
				logger.Error("error fixing issues", zap.String("file", filename), zap.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
