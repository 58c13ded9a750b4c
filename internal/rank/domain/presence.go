package domain

// PresenceEntry is the realtime manager's view of one owner.
type PresenceEntry struct {
	OwnerID           string
	Status            ParticipantStatus
	InactivityStrikes int
	ProxiedAtTurn     int
	Managed           bool
}

// PresenceSnapshot is the realtime manager's view of all owners plus the
// events produced while completing a turn.
type PresenceSnapshot struct {
	Entries      []PresenceEntry
	WarningLimit int
	Events       []TimelineEvent
}

// Entry returns the presence entry for an owner, or nil when absent.
func (s PresenceSnapshot) Entry(ownerID string) *PresenceEntry {
	for i := range s.Entries {
		if s.Entries[i].OwnerID == ownerID {
			return &s.Entries[i]
		}
	}
	return nil
}

// DropInRole aggregates drop-in history for one role.
type DropInRole struct {
	Role               string
	TotalArrivals      int
	Replacements       int
	LastArrivalTurn    int
	LastDepartureTurn  int
	LastDepartureCause string
	ActiveOwnerID      string
}

// DropInSnapshot is the drop-in accounting at a point in the session.
type DropInSnapshot struct {
	Turn  int
	Roles []DropInRole
}
