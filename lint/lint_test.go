package lint

import (
	"context"
	"errors"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/rlin/internal/types"
)

type mockLintEngine struct {
	mock.Mock
}

func (m *mockLintEngine) Run(filePath string) ([]types.Issue, error) {
	args := m.Called(filePath)
	return args.Get(0).([]types.Issue), args.Error(1)
}

func (m *mockLintEngine) RunSource(source []byte) ([]types.Issue, error) {
	args := m.Called(source)
	return args.Get(0).([]types.Issue), args.Error(1)
}

func (m *mockLintEngine) IgnoreRule(rule string) {
	m.Called(rule)
}

func (m *mockLintEngine) IgnorePath(path string) {
	m.Called(path)
}

func (m *mockLintEngine) IsIgnoredPath(path string) bool {
	return false
}

func setupMockEngine(expectedIssues []types.Issue, filePath string) *mockLintEngine {
	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", filePath).Return(expectedIssues, nil)
	return mockEngine
}

func setupSourceMockEngine(expectedIssues []types.Issue, content []byte) *mockLintEngine {
	mockEngine := new(mockLintEngine)
	mockEngine.On("RunSource", content).Return(expectedIssues, nil)
	return mockEngine
}

func testIssues(paths ...string) []types.Issue {
	issues := make([]types.Issue, 0, len(paths))
	for i, path := range paths {
		issues = append(issues, types.Issue{
			Rule:     "rule" + string(rune('1'+i)),
			Filename: path,
			Start:    token.Position{Filename: path, Offset: 0, Line: 1, Column: 1},
			End:      token.Position{Filename: path, Offset: 10, Line: 1, Column: 11},
			Message:  "Test issue",
		})
	}
	return issues
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	expectedIssues := testIssues("test.rb")
	mockEngine := setupMockEngine(expectedIssues, "test.rb")

	issues, err := ProcessFile(mockEngine, "test.rb")

	assert.NoError(t, err)
	assert.Equal(t, expectedIssues, issues)
	mockEngine.AssertExpectations(t)
}

func TestProcessSource(t *testing.T) {
	t.Parallel()
	expectedIssues := testIssues("")
	mockEngine := setupSourceMockEngine(expectedIssues, []byte("x = 1"))

	issues, err := ProcessSource(mockEngine, []byte("x = 1"))

	assert.NoError(t, err)
	assert.Equal(t, expectedIssues, issues)
	mockEngine.AssertExpectations(t)
}

func TestProcessPath(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "a.rb", "lib/b.rake", "Rakefile")
	createTempFiles(t, tempDir, "notes.txt", ".bundle/config.rb")

	expectedIssues := testIssues(paths...)
	mockEngine := new(mockLintEngine)
	for i, path := range paths {
		mockEngine.On("Run", path).Return([]types.Issue{expectedIssues[i]}, nil)
	}

	issues, err := ProcessPath(ctx, logger, mockEngine, tempDir, ProcessFile)

	require.NoError(t, err)
	assert.ElementsMatch(t, expectedIssues, issues)
	mockEngine.AssertExpectations(t)
	mockEngine.AssertNumberOfCalls(t, "Run", len(paths))
}

func TestProcessPathSingleFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "a.rb", "README.md")

	expectedIssues := testIssues(paths[0])
	mockEngine := setupMockEngine(expectedIssues, paths[0])

	issues, err := ProcessPath(context.Background(), nil, mockEngine, paths[0], ProcessFile)
	require.NoError(t, err)
	assert.Equal(t, expectedIssues, issues)

	// files that are not Ruby source are skipped
	issues, err = ProcessPath(context.Background(), nil, mockEngine, paths[1], ProcessFile)
	require.NoError(t, err)
	assert.Empty(t, issues)
	mockEngine.AssertNumberOfCalls(t, "Run", 1)
}

func TestProcessPathMissing(t *testing.T) {
	t.Parallel()
	_, err := ProcessPath(context.Background(), nil, new(mockLintEngine), filepath.Join(t.TempDir(), "missing"), ProcessFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessPathFileErrors(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "bad.rb", "good.rb")

	expectedIssues := testIssues(paths[1])
	boom := errors.New("boom")
	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", paths[0]).Return([]types.Issue(nil), boom)
	mockEngine.On("Run", paths[1]).Return(expectedIssues, nil)

	issues, err := ProcessPath(context.Background(), nil, mockEngine, tempDir, ProcessFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), paths[0])
	assert.Equal(t, expectedIssues, issues)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "test1.rb", "test2.rb")
	expectedIssues := testIssues(paths...)

	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", paths[0]).Return([]types.Issue{expectedIssues[0]}, nil)
	mockEngine.On("Run", paths[1]).Return([]types.Issue{expectedIssues[1]}, nil)

	issues, err := ProcessFiles(ctx, logger, mockEngine, paths, ProcessFile)

	assert.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Contains(t, issues, expectedIssues[0])
	assert.Contains(t, issues, expectedIssues[1])
	mockEngine.AssertExpectations(t)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()

	expectedIssues := testIssues("", "")

	mockEngine := new(mockLintEngine)
	mockEngine.On("RunSource", []byte("x = 1")).Return([]types.Issue{expectedIssues[0]}, nil)
	mockEngine.On("RunSource", []byte("y = 2")).Return([]types.Issue{expectedIssues[1]}, nil)

	issues, err := ProcessSources(ctx, logger, mockEngine, [][]byte{[]byte("x = 1"), []byte("y = 2")}, ProcessSource)

	assert.NoError(t, err)
	assert.Equal(t, expectedIssues, issues)
	mockEngine.AssertExpectations(t)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		config, err := LoadConfig(filepath.Join(t.TempDir(), DefaultConfigFile))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("empty path yields defaults", func(t *testing.T) {
		t.Parallel()
		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, types.SeverityWarning, config.Rules["line-end-concatenation"].Severity)
	})

	t.Run("empty file yields defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("rules and ignore paths", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `name: my-app
rules:
  line-end-concatenation:
    severity: error
ignore_paths:
  - vendor
  - db/schema.rb
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "my-app", config.Name)
		assert.Equal(t, types.SeverityError, config.Rules["line-end-concatenation"].Severity)
		assert.Equal(t, []string{"vendor", "db/schema.rb"}, config.IgnorePaths)
	})

	t.Run("invalid severity", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  x:\n    severity: loud\n"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("rulez: {}\n"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	require.NoError(t, WriteConfig(path, DefaultConfig()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "line-end-concatenation:")
	assert.Contains(t, string(content), "severity: warning")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)

	// an existing file is never overwritten
	assert.ErrorIs(t, WriteConfig(path, DefaultConfig()), os.ErrExist)
}

func createTempFiles(t *testing.T, dir string, fileNames ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(fileNames))
	for _, fileName := range fileNames {
		filePath := filepath.Join(dir, fileName)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		f, err := os.Create(filePath)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		paths = append(paths, filePath)
	}
	return paths
}
