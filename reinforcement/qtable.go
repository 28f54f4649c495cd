package reinforcement

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// QTable maps (state, action) pairs to estimated discounted returns.
// The table is total: a pair that was never written reads as zero, and
// reads never create entries, so "unknown" and "worth nothing yet" are the same thing.
type QTable[S, A comparable] struct {
	values map[S]map[A]float64
}

func NewQTable[S, A comparable]() *QTable[S, A] {
	return &QTable[S, A]{
		values: make(map[S]map[A]float64),
	}
}

// Get returns Q(s,a), or zero for an unseen pair.
func (qt *QTable[S, A]) Get(state S, action A) float64 {
	return qt.values[state][action]
}

// Set writes Q(s,a).
func (qt *QTable[S, A]) Set(state S, action A, value float64) {
	actions, ok := qt.values[state]
	if !ok {
		actions = make(map[A]float64)
		qt.values[state] = actions
	}
	actions[action] = value
}

// BestValue is max_a Q(s,a) over @actions, or zero when @actions is empty.
func (qt *QTable[S, A]) BestValue(state S, actions []A) float64 {
	if len(actions) == 0 {
		return 0
	}
	vals := make([]float64, len(actions))
	for i, a := range actions {
		vals[i] = qt.Get(state, a)
	}
	return floats.Max(vals)
}

// Len is the number of distinct states in the table.
func (qt *QTable[S, A]) Len() int {
	return len(qt.values)
}

// Has reports whether any action value was stored for @state.
func (qt *QTable[S, A]) Has(state S) bool {
	_, ok := qt.values[state]
	return ok
}

// ActionValues returns a copy of the stored action values for @state.
func (qt *QTable[S, A]) ActionValues(state S) map[A]float64 {
	out := make(map[A]float64, len(qt.values[state]))
	for a, v := range qt.values[state] {
		out[a] = v
	}
	return out
}

// Range calls @fn for every stored state. The map passed to @fn is the
// table's own and must not be retained or modified.
func (qt *QTable[S, A]) Range(fn func(state S, actions map[A]float64)) {
	for s, actions := range qt.values {
		fn(s, actions)
	}
}

// Clone returns a deep copy.
func (qt *QTable[S, A]) Clone() *QTable[S, A] {
	clone := &QTable[S, A]{
		values: make(map[S]map[A]float64, len(qt.values)),
	}
	for s := range qt.values {
		clone.values[s] = qt.ActionValues(s)
	}
	return clone
}

// GobEncode implements gob.GobEncoder.
func (qt *QTable[S, A]) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(qt.values); err != nil {
		return nil, fmt.Errorf("encode q-table: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. On error the table is left unchanged.
func (qt *QTable[S, A]) GobDecode(data []byte) error {
	values := make(map[S]map[A]float64)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return fmt.Errorf("decode q-table: %w", err)
	}
	for s, actions := range values {
		if actions == nil {
			values[s] = make(map[A]float64)
		}
	}
	qt.values = values
	return nil
}
