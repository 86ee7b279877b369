package evaluator

// DefaultMaxCallDepth bounds nested invocations when no limit is configured.
const DefaultMaxCallDepth = 10000

// Budget holds the resource limits for a program execution.
type Budget struct {
	TimeMs       *int64
	MaxCallDepth *int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Calls    int64
	Depth    int64
	MaxDepth int64
	StartMs  int64
}

func (b Budget) maxCallDepth() int64 {
	if b.MaxCallDepth != nil && *b.MaxCallDepth > 0 {
		return *b.MaxCallDepth
	}
	return DefaultMaxCallDepth
}
