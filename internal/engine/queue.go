package engine

// MutationKind is the intent recorded for a line.
type MutationKind int

const (
	MutationUpdate MutationKind = iota
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is the latest intended change for one line.
type Mutation struct {
	Kind     MutationKind
	Quantity int // only for MutationUpdate
}

// Update sets a line to qty.
func Update(qty int) Mutation { return Mutation{Kind: MutationUpdate, Quantity: qty} }

// Delete removes a line.
func Delete() Mutation { return Mutation{Kind: MutationDelete} }

// Pending pairs a line id with its mutation.
type Pending struct {
	LineID   string
	Mutation Mutation
}

// Queue coalesces mutations by line id. Only the newest mutation per line
// survives; a line keeps the position of its first enqueue. Queue is not safe
// for concurrent use; the engine guards it.
type Queue struct {
	order   []string
	entries map[string]Mutation
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]Mutation)}
}

// Put inserts or replaces the mutation for lineID.
func (q *Queue) Put(lineID string, m Mutation) {
	if _, ok := q.entries[lineID]; !ok {
		q.order = append(q.order, lineID)
	}
	q.entries[lineID] = m
}

// Len reports the number of lines with a pending mutation.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Drain returns every pending mutation in insertion order and empties the queue.
func (q *Queue) Drain() []Pending {
	if len(q.entries) == 0 {
		return nil
	}
	batch := make([]Pending, 0, len(q.order))
	for _, id := range q.order {
		batch = append(batch, Pending{LineID: id, Mutation: q.entries[id]})
	}
	q.order = nil
	q.entries = make(map[string]Mutation)
	return batch
}
