package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/rlin/internal/syntax"
	tt "github.com/gnolang/rlin/internal/types"
)

const concatSource = `# frozen_string_literal: true

GREETING = 'hello ' +
           'world'

def farewell(name)
  "bye #{name}" +
    '!'
end

total = 1 +
        2
`

// createTempDir creates a temporary directory and returns its path.
// It also registers a cleanup function to remove the directory after the test.
func createTempDir(t testing.TB, prefix string) string {
	tempDir, err := os.MkdirTemp("", prefix)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

func writeFile(t testing.TB, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "engine_test")

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, engine.rules)
	assert.Len(t, engine.dispatch[syntax.KindCall], 1)
	assert.Empty(t, engine.dispatch[syntax.KindStr])
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "engine_run")
	filename := writeFile(t, tempDir, "greeting.rb", concatSource)

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)

	issues, err := engine.Run(filename)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	for _, issue := range issues {
		assert.Equal(t, "line-end-concatenation", issue.Rule)
		assert.Equal(t, filename, issue.Filename)
		assert.Equal(t, filename, issue.Start.Filename)
		assert.Equal(t, tt.SeverityWarning, issue.Severity)
	}
	assert.Equal(t, 3, issues[0].Start.Line)
	assert.Equal(t, 7, issues[1].Start.Line)
}

func TestEngineRunSource(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("", nil)
	require.NoError(t, err)

	issues, err := engine.RunSource([]byte(concatSource))
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Empty(t, issues[0].Filename)

	_, err = engine.RunSource([]byte("x = 'oops\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, syntax.ErrUnterminatedString)
}

func TestEngineRunErrors(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "engine_errors")
	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)

	_, err = engine.Run(filepath.Join(tempDir, "missing.rb"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, tempDir, "bad.rb", "x = \"never closed\n")
	_, err = engine.Run(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing file")
}

func TestEngineIssuesAreSorted(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("", nil)
	require.NoError(t, err)

	issues, err := engine.RunSource([]byte("puts('a' +\n  'b', 'c' +\n  'd')\nx = 'e' +\n  'f'\n"))
	require.NoError(t, err)
	require.Len(t, issues, 3)
	for i := 1; i < len(issues); i++ {
		assert.LessOrEqual(t, issues[i-1].Start.Offset, issues[i].Start.Offset)
	}
}

func TestEngine_IgnoreRule(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("", nil)
	require.NoError(t, err)
	engine.IgnoreRule("line-end-concatenation")

	assert.True(t, engine.ignoredRules["line-end-concatenation"])
	assert.Empty(t, engine.dispatch[syntax.KindCall])

	issues, err := engine.RunSource([]byte(concatSource))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestEngineRuleConfiguration(t *testing.T) {
	t.Parallel()

	t.Run("severity", func(t *testing.T) {
		t.Parallel()
		engine, err := NewEngine("", map[string]tt.ConfigRule{
			"line-end-concatenation": {Severity: tt.SeverityError},
		})
		require.NoError(t, err)

		issues, err := engine.RunSource([]byte(concatSource))
		require.NoError(t, err)
		require.NotEmpty(t, issues)
		assert.Equal(t, tt.SeverityError, issues[0].Severity)
	})

	t.Run("off", func(t *testing.T) {
		t.Parallel()
		engine, err := NewEngine("", map[string]tt.ConfigRule{
			"line-end-concatenation": {Severity: tt.SeverityOff},
		})
		require.NoError(t, err)

		issues, err := engine.RunSource([]byte(concatSource))
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("unknown rule", func(t *testing.T) {
		t.Parallel()
		engine, err := NewEngine("", map[string]tt.ConfigRule{
			"no-such-rule": {Severity: tt.SeverityError},
		})
		require.NoError(t, err)
		assert.NotContains(t, engine.rules, "no-such-rule")
	})
}

func TestEngineNolint(t *testing.T) {
	t.Parallel()

	src := `a = 'x' + # nolint
  'y'
# nolint:line-end-concatenation
b = 'x' +
  'y'
# nolint:other-rule
c = 'x' +
  'y'
`
	engine, err := NewEngine("", nil)
	require.NoError(t, err)

	issues, err := engine.RunSource([]byte(src))
	require.NoError(t, err)
	// a is not an offense at all: the comment sits after the operator
	require.Len(t, issues, 1)
	assert.Equal(t, 7, issues[0].Start.Line)
}

func TestEngineIgnorePath(t *testing.T) {
	t.Parallel()

	tempDir := createTempDir(t, "engine_ignore")
	kept := writeFile(t, tempDir, "app/model.rb", concatSource)
	vendored := writeFile(t, tempDir, "vendor/gems/lib.rb", concatSource)
	schema := writeFile(t, tempDir, "db/schema.rb", concatSource)

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)
	engine.IgnorePath("vendor")
	engine.IgnorePath(schema)

	assert.False(t, engine.IsIgnoredPath(kept))
	assert.True(t, engine.IsIgnoredPath(vendored))
	assert.True(t, engine.IsIgnoredPath(schema))
	assert.False(t, engine.IsIgnoredPath(filepath.Join(tempDir, "vendored.rb")))

	issues, err := engine.Run(vendored)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = engine.Run(kept)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestIsRubySource(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"a.rb", "lib/tasks/db.rake", "x.gemspec", "config.ru", "Rakefile", "sub/Gemfile"} {
		assert.True(t, IsRubySource(name), name)
	}
	for _, name := range []string{"a.go", "README.md", "Gemfile.lock", "rb"} {
		assert.False(t, IsRubySource(name), name)
	}
}

func TestRuleNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"line-end-concatenation"}, RuleNames())
}

func TestReadSourceCode(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "source_code_test")

	testFile := writeFile(t, tempDir, "test.rb", "def main\r\n  puts 'hi'\r\nend")

	sourceCode, err := ReadSourceCode(testFile)
	require.NoError(t, err)
	assert.Len(t, sourceCode.Lines, 3)
	assert.Equal(t, "def main", sourceCode.Lines[0])
	assert.Equal(t, "end", sourceCode.Lines[2])

	_, err = ReadSourceCode(filepath.Join(tempDir, "missing.rb"))
	assert.Error(t, err)
}

// create dummy source code for benchmark
var testSrc = strings.Repeat("s = 'hello ' +\n    'world'\n", 5000)

func BenchmarkRunSource(b *testing.B) {
	engine, err := NewEngine("", nil)
	require.NoError(b, err)
	src := []byte(testSrc)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RunSource(src); err != nil {
			b.Fatal(err)
		}
	}
}
