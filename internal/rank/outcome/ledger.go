package outcome

// Ledger is the opaque cross-turn accumulator owned by an external
// collaborator. The processor never inspects it; it only threads it through
// the injected ledger operations.
type Ledger any

// LedgerEntry is one per-role outcome recorded into the ledger.
type LedgerEntry struct {
	Turn      int
	NodeID    string
	SlotIndex int
	Role      string
	Outcome   string
	Variables []string
	Actors    []string
}

// LedgerResult reports how a record call changed the ledger.
type LedgerResult struct {
	Changed   bool
	Completed bool
}

// Snapshot is the externally-built view of the ledger published to
// observers. Opaque to the processor.
type Snapshot any

// LedgerOps groups the injected ledger operations. BuildSnapshot must accept
// a nil ledger: sessions observe outcomes before a ledger is wired up.
type LedgerOps struct {
	Record        func(ledger Ledger, entry LedgerEntry) LedgerResult
	BuildSnapshot func(ledger Ledger) Snapshot
}

// LedgerRef is the mutable cell holding the session's ledger. Nil Current
// means no ledger has been wired up yet.
type LedgerRef struct {
	Current Ledger
}
