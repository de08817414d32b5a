package domain

// OpKind classifies one line-level diff operation.
type OpKind string

// Diff operation kinds.
const (
	// OpKept indicates a line present in both snapshots.
	OpKept OpKind = "kept"
	// OpAdded indicates a line introduced by the newer snapshot.
	OpAdded OpKind = "added"
	// OpRemoved indicates a line dropped from the older snapshot.
	OpRemoved OpKind = "removed"
)

// Op is one line-level operation transforming the previous snapshot into the
// current one.
type Op struct {
	// Kind is the operation type.
	Kind OpKind `json:"kind"`
	// Line is the affected line content.
	Line string `json:"line"`
}

// Diff is the ordered operation list between two consecutive snapshots.
type Diff struct {
	// FromLabel is the older label, empty for the first label's diff.
	FromLabel string `json:"fromLabel"`
	// ToLabel is the newer label.
	ToLabel string `json:"toLabel"`
	// Language is the language variant this diff belongs to.
	Language Language `json:"language"`
	// Ops are the operations ordered by position in the current snapshot,
	// with removals placed where they left the previous snapshot.
	Ops []Op `json:"ops"`
}

// Added returns the number of added lines.
func (d Diff) Added() int { return d.count(OpAdded) }

// Removed returns the number of removed lines.
func (d Diff) Removed() int { return d.count(OpRemoved) }

func (d Diff) count(kind OpKind) int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
