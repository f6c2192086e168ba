package task

// ChainKind distinguishes the single critical chain from the feeding chains
// that merge into it.
type ChainKind int

const (
	ChainCritical ChainKind = iota
	ChainFeeding
)

func (k ChainKind) String() string {
	if k == ChainCritical {
		return "critical"
	}
	return "feeding"
}

// Chain is an ordered, non-empty sequence of task ids forming a path in the
// dependency graph: the critical chain, or one feeding chain.
type Chain struct {
	ID          string
	Kind        ChainKind
	Tasks       []string
	BufferID    string
	BufferRatio float64
}

// NewChain constructs a chain with the default 0.5 buffer ratio.
func NewChain(id string, kind ChainKind, tasks []string) *Chain {
	return &Chain{
		ID:          id,
		Kind:        kind,
		Tasks:       append([]string(nil), tasks...),
		BufferRatio: 0.5,
	}
}
