package reinforcement

// MergeStats describes what a merge took from each side.
type MergeStats struct {
	StatesA int `json:"statesA"`
	StatesB int `json:"statesB"`
	// NewStates were known only to b.
	NewStates int `json:"newStates"`
	// NewActions were known only to b, in states both knew.
	NewActions int `json:"newActions"`
	// ConflictsResolved counts shared pairs where b's strictly larger value won.
	ConflictsResolved int `json:"conflictsResolved"`
	Total             int `json:"total"`
}

// Merge combines two tables into a new one, keeping the larger value of every
// pair both know; a tie keeps a's value. Neither input is modified.
func Merge[S, A comparable](a, b *QTable[S, A]) (*QTable[S, A], MergeStats) {
	merged := a.Clone()
	stats := MergeStats{
		StatesA: a.Len(),
		StatesB: b.Len(),
	}

	b.Range(func(state S, actions map[A]float64) {
		existing, ok := merged.values[state]
		if !ok {
			merged.values[state] = b.ActionValues(state)
			stats.NewStates++
			return
		}
		for action, val := range actions {
			old, known := existing[action]
			switch {
			case !known:
				existing[action] = val
				stats.NewActions++
			case val > old:
				existing[action] = val
				stats.ConflictsResolved++
			}
		}
	})

	stats.Total = merged.Len()
	return merged, stats
}
