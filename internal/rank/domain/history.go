package domain

// HistoryEntry is one prompt or response line of the session transcript.
type HistoryEntry struct {
	Role     string
	Content  string
	Public   bool
	Turn     int
	Metadata map[string]any
}

// CloneMetadata returns a shallow copy of the entry's metadata map.
func (e HistoryEntry) CloneMetadata() map[string]any {
	if e.Metadata == nil {
		return nil
	}
	clone := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		clone[k] = v
	}
	return clone
}

// TurnRecord is the structured log record appended after each processed turn.
type TurnRecord struct {
	Turn      int
	NodeID    string
	SlotIndex int
	Prompt    string
	Response  string
	Outcome   string
	Variables []string
	Next      string
	Action    EdgeAction
}
