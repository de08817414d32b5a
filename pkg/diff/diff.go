// Package diff computes line-level differences between consecutive version
// snapshots.
//
// The alignment is a longest-common-subsequence edit script rather than an
// append-only assumption, so the same code path is correct for strictly
// growing reference sheets and for projects that rewrite earlier lines.
package diff

import (
	"fmt"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
)

// Compute returns the ordered operations that transform prev into curr.
// Operations follow the position in curr, with removed lines placed where
// they left prev. The result is a pure function of its two inputs.
func Compute(prev, curr []string) []domain.Op {
	// LCS length table; table[i][j] is the LCS of prev[i:] and curr[j:].
	n, m := len(prev), len(curr)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if prev[i] == curr[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	ops := make([]domain.Op, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case prev[i] == curr[j]:
			ops = append(ops, domain.Op{Kind: domain.OpKept, Line: curr[j]})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			ops = append(ops, domain.Op{Kind: domain.OpRemoved, Line: prev[i]})
			i++
		default:
			ops = append(ops, domain.Op{Kind: domain.OpAdded, Line: curr[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, domain.Op{Kind: domain.OpRemoved, Line: prev[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, domain.Op{Kind: domain.OpAdded, Line: curr[j]})
	}

	return ops
}

// Between computes the diff between two snapshots of the same file.
// The first label's diff passes a zero-value Snapshot as prev, reporting
// every line as added.
func Between(prev, curr domain.Snapshot, lang domain.Language) domain.Diff {
	return domain.Diff{
		FromLabel: prev.Label,
		ToLabel:   curr.Label,
		Language:  lang,
		Ops:       Compute(prev.Lines, curr.Lines),
	}
}

// Apply replays an operation list against the previous snapshot's lines and
// returns the current snapshot's lines. It fails when the ops do not match
// prev, which would indicate a diff computed against different input.
func Apply(prev []string, ops []domain.Op) ([]string, error) {
	var out []string
	i := 0
	for _, op := range ops {
		switch op.Kind {
		case domain.OpKept:
			if i >= len(prev) || prev[i] != op.Line {
				return nil, fmt.Errorf("diff: kept line %q does not match previous snapshot", op.Line)
			}
			out = append(out, op.Line)
			i++
		case domain.OpRemoved:
			if i >= len(prev) || prev[i] != op.Line {
				return nil, fmt.Errorf("diff: removed line %q does not match previous snapshot", op.Line)
			}
			i++
		case domain.OpAdded:
			out = append(out, op.Line)
		default:
			return nil, fmt.Errorf("diff: unknown op kind %q", op.Kind)
		}
	}
	if i != len(prev) {
		return nil, fmt.Errorf("diff: %d unconsumed previous lines", len(prev)-i)
	}
	return out, nil
}
