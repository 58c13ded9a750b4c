package domain

import (
	"strconv"
	"strings"
)

// SlotType describes who produces the response for a node.
type SlotType string

const (
	// SlotTypeAI indicates the AI narrator acts.
	SlotTypeAI SlotType = "ai"
	// SlotTypeUserAction indicates a participant submits the action.
	SlotTypeUserAction SlotType = "user_action"
	// SlotTypeManual indicates a pre-authored manual response.
	SlotTypeManual SlotType = "manual"
)

// EdgeAction describes the transition semantics an edge carries.
type EdgeAction string

const (
	// EdgeActionContinue advances to the edge target.
	EdgeActionContinue EdgeAction = "continue"
	// EdgeActionWin ends the battle in victory, or scores a point in brawl mode.
	EdgeActionWin EdgeAction = "win"
	// EdgeActionLose ends the battle in defeat.
	EdgeActionLose EdgeAction = "lose"
	// EdgeActionDraw ends the battle in a draw.
	EdgeActionDraw EdgeAction = "draw"
)

// NodeOptions carries optional per-node presentation and acting hints.
type NodeOptions struct {
	VisibleSlots []int
}

// Node is a vertex of the narrative branching graph.
type Node struct {
	ID       string
	SlotType SlotType
	SlotNo   int
	Options  NodeOptions
}

// Edge is a transition of the narrative branching graph.
type Edge struct {
	From   string
	To     string
	Action EdgeAction
}

// SameNodeID reports whether two node id spellings refer to the same node.
// Authored graphs mix string and numeric ids, so "07" and "7" must match.
func SameNodeID(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	return errA == nil && errB == nil && na == nb
}

// OutgoingEdges returns every edge leaving the given node.
func OutgoingEdges(edges []Edge, nodeID string) []Edge {
	outgoing := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		if SameNodeID(edge.From, nodeID) {
			outgoing = append(outgoing, edge)
		}
	}
	return outgoing
}

// FindNode returns the node with the given id, or nil when absent.
func FindNode(nodes []Node, nodeID string) *Node {
	for i := range nodes {
		if SameNodeID(nodes[i].ID, nodeID) {
			return &nodes[i]
		}
	}
	return nil
}
