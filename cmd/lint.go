package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rlin/formatter"
	"github.com/gnolang/rlin/internal"
	tt "github.com/gnolang/rlin/internal/types"
	"github.com/gnolang/rlin/lint"
)

var (
	ignoreRules    string
	ignorePaths    string
	lintJsonOutput bool
	outPath        string
	watchMode      bool
	cacheDir       string
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Run the normal lint process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("please provide file or directory paths")
		}

		engine, cache, err := newEngine(cacheDir)
		if err != nil {
			return err
		}
		applyIgnores(engine, ignoreRules, ignorePaths)

		if watchMode {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, engine, args, cmd.OutOrStdout())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		err = runNormalLintProcess(ctx, logger, engine, args, cmd.OutOrStdout(), lintJsonOutput, outPath)
		if cache != nil {
			if flushErr := cache.Flush(); flushErr != nil {
				logger.Warn("Failed to write cache", zap.Error(flushErr))
			}
		}
		return err
	},
}

func init() {
	lintCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of lint rules to ignore")
	lintCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	lintCmd.Flags().BoolVar(&lintJsonOutput, "json", false, "Output issues in JSON format")
	lintCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	lintCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Lint files again whenever they change")
	lintCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory used to cache results of unchanged files")
}

// newEngine builds the engine from the configuration file, with a result
// cache when dir is set.
func newEngine(dir string) (*internal.Engine, *internal.Cache, error) {
	opts := []internal.Option{internal.WithLogger(logger)}

	var cache *internal.Cache
	if dir != "" {
		c, err := internal.NewCache(dir, cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		cache = c
		opts = append(opts, internal.WithCache(cache))
	}

	engine, err := lint.New(".", cfgFile, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize lint engine: %w", err)
	}
	return engine, cache, nil
}

func applyIgnores(engine lint.LintEngine, rules, paths string) {
	for _, rule := range splitList(rules) {
		engine.IgnoreRule(rule)
	}
	for _, path := range splitList(paths) {
		engine.IgnorePath(path)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runNormalLintProcess(
	ctx context.Context,
	logger *zap.Logger,
	engine lint.LintEngine,
	paths []string,
	w io.Writer,
	isJson bool,
	jsonOutput string,
) error {
	// files that failed do not hide the issues found in the others
	issues, processErr := lint.ProcessFiles(ctx, logger, engine, paths, lint.ProcessFile)

	if err := printIssues(w, logger, issues, isJson, jsonOutput); err != nil {
		return errors.Join(err, processErr)
	}

	if processErr != nil {
		return fmt.Errorf("error processing files: %w", processErr)
	}
	if len(issues) > 0 {
		return ErrIssuesFound
	}
	return nil
}

func groupByFile(issues []tt.Issue) (map[string][]tt.Issue, []string) {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	sortedFiles := make([]string, 0, len(issuesByFile))
	for filename := range issuesByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)
	return issuesByFile, sortedFiles
}

func printIssues(w io.Writer, logger *zap.Logger, issues []tt.Issue, isJson bool, jsonOutput string) error {
	issuesByFile, sortedFiles := groupByFile(issues)

	if !isJson {
		// text output
		for _, filename := range sortedFiles {
			fileIssues := issuesByFile[filename]
			sourceCode, err := internal.ReadSourceCode(filename)
			if err != nil {
				logger.Error("Error reading source file", zap.String("file", filename), zap.Error(err))
				continue
			}
			fmt.Fprintln(w, formatter.GenerateFormattedIssue(fileIssues, sourceCode))
		}
		return nil
	}

	// JSON output
	d, err := json.MarshalIndent(issuesByFile, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling issues to JSON: %w", err)
	}
	if jsonOutput == "" {
		fmt.Fprintln(w, string(d))
		return nil
	}
	if err := os.WriteFile(jsonOutput, d, 0o644); err != nil {
		return fmt.Errorf("error writing JSON output file: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, engine *internal.Engine, paths []string, w io.Writer) error {
	return engine.Watch(ctx, paths, func(filename string, issues []tt.Issue, err error) {
		if err != nil {
			logger.Error("Error linting file", zap.String("file", filename), zap.Error(err))
			return
		}
		logger.Info("Linted file", zap.String("file", filename), zap.Int("issues", len(issues)))
		if err := printIssues(w, logger, issues, false, ""); err != nil {
			logger.Error("Error printing issues", zap.Error(err))
		}
	})
}
