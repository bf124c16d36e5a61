package lint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/rlin/internal"
	tt "github.com/gnolang/rlin/internal/types"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = ".rlin.yaml"

type LintEngine interface {
	Run(filePath string) ([]tt.Issue, error)
	RunSource(source []byte) ([]tt.Issue, error)
	IgnoreRule(rule string)
	IgnorePath(path string)
	IsIgnoredPath(path string) bool
}

// New creates an engine configured from the YAML file at configurationPath.
// A missing configuration file yields the default configuration.
func New(rootDir string, configurationPath string, opts ...internal.Option) (*internal.Engine, error) {
	config, err := LoadConfig(configurationPath)
	if err != nil {
		return nil, err
	}

	engine, err := internal.NewEngine(rootDir, config.Rules, opts...)
	if err != nil {
		return nil, err
	}
	for _, path := range config.IgnorePaths {
		engine.IgnorePath(path)
	}
	return engine, nil
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	sources [][]byte,
	processor func(LintEngine, []byte) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return allIssues, err
		}
		issues, err := processor(engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}

	return allIssues, nil
}

// ProcessFiles runs ProcessPath for every path. A path that fails keeps
// the issues found elsewhere; the failures are joined into the returned
// error. Cancellation stops before the next path.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	paths []string,
	processor func(LintEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	var errs []error
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor)
		allIssues = append(allIssues, issues...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	return allIssues, errors.Join(errs...)
}

// ProcessPath lints a single file or every Ruby file below a directory.
// Files are processed by at most runtime.NumCPU() workers. A file that
// fails to process does not stop the others; the failures are joined into
// the returned error next to the issues of every other file. On
// cancellation the issues collected so far are returned with the context error.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	path string,
	processor func(LintEngine, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !internal.IsRubySource(path) {
			return nil, nil
		}
		issues, err := processor(engine, path)
		if err != nil {
			return []tt.Issue{}, err
		}
		return issues, nil
	}

	files, err := collectFiles(path, engine)
	if err != nil {
		return nil, err
	}

	bar := newProgressBar(len(files), path, os.Stderr)
	results := make([][]tt.Issue, len(files))
	fileErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, filePath := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() { _ = bar.Add(1) }()

			fileIssues, err := processor(engine, filePath)
			if err != nil {
				logger.Error("Error processing file", zap.String("file", filePath), zap.Error(err))
				fileErrs[i] = fmt.Errorf("%s: %w", filePath, err)
				return nil
			}
			results[i] = fileIssues
			return nil
		})
	}
	waitErr := g.Wait()
	_ = bar.Finish()

	issues := make([]tt.Issue, 0)
	for _, fileIssues := range results {
		issues = append(issues, fileIssues...)
	}

	if err := ctx.Err(); err != nil {
		return issues, err
	}
	if waitErr != nil {
		return issues, waitErr
	}
	return issues, errors.Join(fileErrs...)
}

// collectFiles walks root in lexical order and returns the Ruby files the
// engine does not ignore. Hidden directories are skipped.
func collectFiles(root string, engine LintEngine) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filePath != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if engine.IsIgnoredPath(filePath) {
				return filepath.SkipDir
			}
			return nil
		}
		if internal.IsRubySource(filePath) && !engine.IsIgnoredPath(filePath) {
			files = append(files, filePath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	return files, nil
}

// newProgressBar renders to w only when w is a terminal.
func newProgressBar(total int, description string, w io.Writer) *progressbar.ProgressBar {
	visible := false
	if f, ok := w.(*os.File); ok {
		visible = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func ProcessFile(engine LintEngine, filePath string) ([]tt.Issue, error) {
	return engine.Run(filePath)
}

func ProcessSource(engine LintEngine, source []byte) ([]tt.Issue, error) {
	return engine.RunSource(source)
}

// Config represents the overall configuration with a name and a slice of rules.
type Config struct {
	Name        string                   `yaml:"name"`
	Rules       map[string]tt.ConfigRule `yaml:"rules"`
	IgnorePaths []string                 `yaml:"ignore_paths,omitempty"`
}

// DefaultConfig enables every known rule at its default severity.
func DefaultConfig() Config {
	rules := make(map[string]tt.ConfigRule)
	for _, name := range internal.RuleNames() {
		rules[name] = tt.ConfigRule{Severity: tt.SeverityWarning}
	}
	return Config{
		Name:  "rlin",
		Rules: rules,
	}
}

// LoadConfig reads the YAML configuration at configurationPath.
// An empty path, a missing file, or an empty file yields DefaultConfig.
func LoadConfig(configurationPath string) (Config, error) {
	if configurationPath == "" {
		return DefaultConfig(), nil
	}

	// Read the configuration file
	f, err := os.Open(configurationPath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	// Parse the configuration file
	var config Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("error parsing %s: %w", configurationPath, err)
	}

	return config, nil
}

// WriteConfig writes config as YAML to path, refusing to overwrite an existing file.
func WriteConfig(path string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error encoding configuration: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
