package realtime

// State is the locally-held row list a subscriber renders. Apply merges push
// events into it with dedup by row id: applying the same insert twice yields
// the same state as applying it once.
type State struct {
	order []string
	rows  map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{rows: make(map[string]any)}
}

// Apply merges a change event. Inserts of an already-known row are skipped;
// updates replace the payload, or insert it when the row was never seen
// (update-before-insert races on the transport). Returns whether the state
// changed.
func (s *State) Apply(c Change) bool {
	if c.RowID == "" {
		return false
	}
	_, known := s.rows[c.RowID]
	switch c.Kind {
	case KindInsert:
		if known {
			return false
		}
		s.order = append(s.order, c.RowID)
		s.rows[c.RowID] = c.Payload
		return true
	case KindUpdate:
		if !known {
			s.order = append(s.order, c.RowID)
		}
		s.rows[c.RowID] = c.Payload
		return true
	}
	return false
}

// Len reports the number of distinct rows held.
func (s *State) Len() int {
	return len(s.order)
}

// Rows returns payloads in first-seen order.
func (s *State) Rows() []any {
	out := make([]any, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}
