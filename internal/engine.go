package internal

import (
	"cmp"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/rlin/internal/nolint"
	"github.com/gnolang/rlin/internal/syntax"
	"github.com/gnolang/rlin/internal/trie"
	tt "github.com/gnolang/rlin/internal/types"
)

// Engine manages the linting process.
//
// Rules subscribe to node kinds. Each file is parsed once and walked once;
// every node is handed to the rules registered for its kind.
// An Engine must be fully configured before Run is called concurrently.
type Engine struct {
	rootDir      string
	ignoredRules map[string]bool
	ignoredPaths *trie.Arena
	rules        map[string]LintRule
	dispatch     map[syntax.Kind][]LintRule
	ruleSet      string // enabled rules and severities, part of the cache key
	cache        *Cache
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache makes the engine reuse results for unchanged files.
func WithCache(cache *Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithLogger sets the logger used for rule failures and watch events.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new lint engine.
// Relative ignore paths are resolved against rootDir.
func NewEngine(rootDir string, rules map[string]tt.ConfigRule, opts ...Option) (*Engine, error) {
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving root directory: %w", err)
	}

	engine := &Engine{
		rootDir:      absRoot,
		ignoredRules: make(map[string]bool),
		ignoredPaths: trie.NewArena(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.applyRules(rules)

	return engine, nil
}

// Define the ruleConstructor type
type ruleConstructor func() LintRule

// Define the ruleMap type
type ruleMap map[string]ruleConstructor

// Create a map to hold the mappings of rule names to their constructors
var allRuleConstructors = ruleMap{
	"line-end-concatenation": NewLineEndConcatenationRule,
}

// RuleNames returns the names of every known rule in sorted order.
func RuleNames() []string {
	names := make([]string, 0, len(allRuleConstructors))
	for name := range allRuleConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (e *Engine) applyRules(rules map[string]tt.ConfigRule) {
	e.rules = make(map[string]LintRule)
	e.registerDefaultRules()

	// Iterate over the rules and apply severity
	for key, rule := range rules {
		r := e.findRule(key)
		if r == nil {
			newRuleCstr := allRuleConstructors[key]
			if newRuleCstr == nil {
				e.logger.Warn("unknown rule in configuration", zap.String("rule", key))
				continue
			}
			r = newRuleCstr()
			e.rules[key] = r
		}
		if rule.Severity == tt.SeverityOff {
			e.ignoredRules[key] = true
		}
		r.SetSeverity(rule.Severity)
	}
	e.rebuildDispatch()
}

func (e *Engine) registerDefaultRules() {
	// iterate over allRuleConstructors and add them to the rules map if severity is not off
	for key, newRuleCstr := range allRuleConstructors {
		newRule := newRuleCstr()
		if newRule.Severity() != tt.SeverityOff {
			e.rules[key] = newRule
		}
	}
}

func (e *Engine) findRule(name string) LintRule {
	if rule, ok := e.rules[name]; ok {
		return rule
	}
	return nil
}

// rebuildDispatch indexes the enabled rules by the node kinds they inspect.
func (e *Engine) rebuildDispatch() {
	names := make([]string, 0, len(e.rules))
	for name := range e.rules {
		names = append(names, name)
	}
	slices.Sort(names)

	e.dispatch = make(map[syntax.Kind][]LintRule)
	enabled := make([]string, 0, len(names))
	for _, name := range names {
		rule := e.rules[name]
		if e.ignoredRules[name] {
			continue
		}
		enabled = append(enabled, name+"="+rule.Severity().String())
		for _, kind := range rule.Kinds() {
			e.dispatch[kind] = append(e.dispatch[kind], rule)
		}
	}
	e.ruleSet = strings.Join(enabled, ",")
}

// Run applies all lint rules to the given file and returns a slice of Issues.
func (e *Engine) Run(filename string) ([]tt.Issue, error) {
	if e.IsIgnoredPath(filename) {
		return nil, nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if e.cache != nil {
		if issues, ok := e.cache.Get(filename, src, e.ruleSet); ok {
			return issues, nil
		}
	}

	file, err := syntax.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}

	issues := e.check(filename, file)

	if e.cache != nil {
		e.cache.Set(filename, src, e.ruleSet, issues)
	}
	return issues, nil
}

// RunSource applies all lint rules to the given source and returns a slice of Issues.
func (e *Engine) RunSource(source []byte) ([]tt.Issue, error) {
	file, err := syntax.Parse("", source)
	if err != nil {
		return nil, fmt.Errorf("error parsing content: %w", err)
	}
	return e.check("", file), nil
}

func (e *Engine) check(filename string, file *syntax.File) []tt.Issue {
	var allIssues []tt.Issue
	syntax.Inspect(file.Root, func(n *syntax.Node) bool {
		for _, rule := range e.dispatch[n.Kind] {
			issues, err := rule.Check(filename, n)
			if err != nil {
				e.logger.Debug("rule failed",
					zap.String("rule", rule.Name()),
					zap.String("file", filename),
					zap.Error(err),
				)
				continue
			}
			allIssues = append(allIssues, issues...)
		}
		return true
	})

	allIssues = filterNolintIssues(nolint.ParseComments(file), allIssues)
	slices.SortStableFunc(allIssues, func(a, b tt.Issue) int {
		return cmp.Or(
			cmp.Compare(a.Start.Offset, b.Start.Offset),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
	return allIssues
}

// IgnoreRule disables the named rule.
func (e *Engine) IgnoreRule(rule string) {
	e.ignoredRules[rule] = true
	e.rebuildDispatch()
}

// IgnorePath excludes a file or every file below a directory.
func (e *Engine) IgnorePath(path string) {
	e.ignoredPaths.Insert(splitPath(e.resolve(path, e.rootDir)))
}

// IsIgnoredPath reports whether filename lies under an ignored path.
func (e *Engine) IsIgnoredPath(filename string) bool {
	return e.ignoredPaths.HasPrefix(splitPath(e.resolve(filename, "")))
}

// resolve makes path absolute, joining relative paths onto base when set.
func (e *Engine) resolve(path, base string) string {
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// filterNolintIssues filters issues based on nolint comments.
func filterNolintIssues(mgr *nolint.Manager, issues []tt.Issue) []tt.Issue {
	if mgr == nil {
		return issues
	}
	filtered := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		pos := token.Position{
			Filename: issue.Start.Filename,
			Line:     issue.Start.Line,
		}
		if !mgr.IsNolint(pos, issue.Rule) {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}

// rubyExtensions lists the extensions of files the engine lints.
var rubyExtensions = map[string]bool{
	".rb":      true,
	".rake":    true,
	".gemspec": true,
	".ru":      true,
}

// rubyBasenames lists extensionless files that hold Ruby source.
var rubyBasenames = map[string]bool{
	"Rakefile": true,
	"Gemfile":  true,
}

// IsRubySource reports whether path names a file the engine lints.
func IsRubySource(path string) bool {
	base := filepath.Base(path)
	return rubyExtensions[filepath.Ext(base)] || rubyBasenames[base]
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(content), nil
}

// NewSourceCode splits content into lines without their terminators.
func NewSourceCode(content []byte) *SourceCode {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return &SourceCode{Lines: lines}
}
