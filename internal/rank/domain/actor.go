package domain

// Slot is a numbered seat in the battle layout. The index is zero-based;
// authored graph nodes refer to slots with one-based numbers.
type Slot struct {
	Index int
	Role  string
	Hero  *Hero
}

// ActorContext identifies which seat acts for a given turn. It is derived
// fresh per turn and never stored.
type ActorContext struct {
	SlotIndex   int
	Slot        *Slot
	Participant *Participant
}

// ResolveActorContext determines the acting slot for a node. Resolution
// order: the node's explicit slot number when positive, else the first
// visible slot, else slot zero when any slots exist, else no actor.
func ResolveActorContext(node *Node, slots []Slot, roster []Participant) ActorContext {
	slotIndex := -1

	if node != nil {
		switch {
		case node.SlotNo > 0:
			slotIndex = node.SlotNo - 1
		case len(node.Options.VisibleSlots) > 0 && node.Options.VisibleSlots[0] > 0:
			slotIndex = node.Options.VisibleSlots[0] - 1
		}
	}
	if slotIndex < 0 && len(slots) > 0 {
		slotIndex = 0
	}

	ctx := ActorContext{SlotIndex: slotIndex}
	if slotIndex < 0 {
		return ctx
	}
	if slotIndex < len(slots) {
		ctx.Slot = &slots[slotIndex]
	}
	ctx.Participant = FindBySlot(roster, slotIndex)
	return ctx
}
