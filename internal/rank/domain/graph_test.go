package domain

import "testing"

func TestSameNodeIDNumericEquivalence(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"7", "7", true},
		{"07", "7", true},
		{" 7 ", "7", true},
		{"start", "start", true},
		{"start", "end", false},
		{"7", "8", false},
		{"", "7", false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := SameNodeID(tt.a, tt.b); got != tt.want {
			t.Errorf("SameNodeID(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOutgoingEdges(t *testing.T) {
	edges := []Edge{
		{From: "1", To: "2", Action: EdgeActionContinue},
		{From: "01", To: "3", Action: EdgeActionWin},
		{From: "2", To: "4", Action: EdgeActionLose},
	}

	outgoing := OutgoingEdges(edges, "1")
	if len(outgoing) != 2 {
		t.Fatalf("expected 2 outgoing edges, got %d", len(outgoing))
	}
	if outgoing[0].To != "2" || outgoing[1].To != "3" {
		t.Fatalf("unexpected edges: %+v", outgoing)
	}
}

func TestFindNode(t *testing.T) {
	nodes := []Node{{ID: "1"}, {ID: "02"}}
	if n := FindNode(nodes, "2"); n == nil || n.ID != "02" {
		t.Fatalf("expected node 02, got %+v", n)
	}
	if n := FindNode(nodes, "9"); n != nil {
		t.Fatalf("expected nil for missing node, got %+v", n)
	}
}
