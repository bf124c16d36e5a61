package fixer

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/gnolang/rlin/internal/syntax"
	tt "github.com/gnolang/rlin/internal/types"
)

type Fixer struct {
	DryRun        bool
	MinConfidence float64 // threshold for fixing issues
	Out           io.Writer
}

func New(dryRun bool, threshold float64) *Fixer {
	return &Fixer{
		DryRun:        dryRun,
		MinConfidence: threshold,
		Out:           os.Stdout,
	}
}

// Fix applies the edits carried by issues to filename.
// Issues below the confidence threshold, without edits, or whose edits
// overlap an already accepted issue are left alone.
func (f *Fixer) Fix(filename string, issues []tt.Issue) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	accepted := f.selectIssues(issues)
	if len(accepted) == 0 {
		return nil
	}

	if f.DryRun {
		for _, issue := range accepted {
			fmt.Fprintf(f.Out, "Would fix issue in %s at line %d: %s\n", filename, issue.Start.Line, issue.Message)
			fmt.Fprintf(f.Out, "Suggestion:\n%s\n", issue.Suggestion)
		}
		return nil
	}

	var edits []tt.TextEdit
	for _, issue := range accepted {
		edits = append(edits, issue.Edits...)
	}
	fixed, _, err := ApplyEdits(content, edits)
	if err != nil {
		return err
	}

	if _, err := syntax.Parse(filename, fixed); err != nil {
		return fmt.Errorf("fixed source does not parse: %w", err)
	}

	if err := os.WriteFile(filename, fixed, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(f.Out, "Fixed %d issue(s) in %s\n", len(accepted), filename)
	return nil
}

// selectIssues returns the fixable issues whose edits do not overlap,
// ordered from the end of the file to the start.
func (f *Fixer) selectIssues(issues []tt.Issue) []tt.Issue {
	candidates := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.HasFix() && issue.Confidence >= f.MinConfidence {
			candidates = append(candidates, issue)
		}
	}
	slices.SortStableFunc(candidates, func(a, b tt.Issue) int {
		return cmp.Compare(firstEditStart(b), firstEditStart(a))
	})

	var (
		accepted []tt.Issue
		taken    []tt.TextEdit
	)
	for _, issue := range candidates {
		if overlapsAny(issue.Edits, taken) {
			continue
		}
		accepted = append(accepted, issue)
		taken = append(taken, issue.Edits...)
	}
	return accepted
}

func firstEditStart(issue tt.Issue) int {
	start := issue.Edits[0].Start
	for _, edit := range issue.Edits[1:] {
		start = min(start, edit.Start)
	}
	return start
}

func overlapsAny(edits, taken []tt.TextEdit) bool {
	for _, edit := range edits {
		for _, other := range taken {
			if edit.Overlaps(other) {
				return true
			}
		}
	}
	return false
}

// ApplyEdits applies edits to src from the end of the input to the start so
// earlier offsets stay valid. Edits overlapping one already applied are
// skipped and returned.
func ApplyEdits(src []byte, edits []tt.TextEdit) ([]byte, []tt.TextEdit, error) {
	for _, edit := range edits {
		if edit.Start < 0 || edit.Start > edit.End || edit.End > len(src) {
			return nil, nil, fmt.Errorf("edit [%d, %d) out of range for %d bytes", edit.Start, edit.End, len(src))
		}
	}

	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b tt.TextEdit) int {
		return cmp.Or(
			cmp.Compare(b.Start, a.Start),
			cmp.Compare(b.End, a.End),
		)
	})

	out := slices.Clone(src)
	var skipped []tt.TextEdit
	var last *tt.TextEdit
	for i := range sorted {
		edit := sorted[i]
		if last != nil && edit.Overlaps(*last) {
			skipped = append(skipped, edit)
			continue
		}
		out = slices.Concat(out[:edit.Start], []byte(edit.NewText), out[edit.End:])
		last = &sorted[i]
	}
	return out, skipped, nil
}
