// Package outcome parses one turn's AI response, updates the outcome ledger,
// selects the next graph edge, and decides whether the session terminates.
package outcome

import (
	"context"
	"log"
	"strings"

	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/telemetry"
)

// footerLineLimit bounds how many trailing non-blank lines are treated as
// the machine-readable footer of a response.
const footerLineLimit = 3

// previewLimit bounds prompt/response previews in fallback log entries.
const previewLimit = 240

// Parsed is the structured outcome extracted from a response text.
type Parsed struct {
	LastLine  string
	Variables []string
	Actors    []string
}

// RoutingContext is the state handed to the edge selector.
type RoutingContext struct {
	Turn          int
	NodeID        string
	SlotIndex     int
	Outcome       string
	Variables     []string
	ActiveGlobals map[string]struct{}
	ActiveLocals  map[string]struct{}
	WinCount      int
	BrawlEnabled  bool
}

// Collaborators groups the injected parsing and routing functions.
type Collaborators struct {
	Parse      func(responseText string) Parsed
	SelectEdge func(outgoing []domain.Edge, rctx RoutingContext) *domain.Edge
	Ledger     LedgerOps
}

// Persistence groups the storage-facing callbacks. LogTurnEntries failures
// are swallowed: logging is best-effort and never interrupts routing.
// FinalizeRemote must not block; the processor calls it exactly once per
// finalized session and never awaits or retries it.
type Persistence struct {
	LogTurnEntries      func(ctx context.Context, entries []domain.HistoryEntry, turn int) error
	AppendTurnRecord    func(record domain.TurnRecord)
	CaptureBattleLog    func(reason domain.FinalizeReason)
	ClearSessionRecord  func()
	MarkSessionDefeated func()
	FinalizeRemote      func(payload FinalizePayload)
	// EmitTelemetry records the session's terminal transition. Optional and
	// best-effort.
	EmitTelemetry func(ctx context.Context, kind, message string)
}

// Realtime groups the realtime-facing callbacks.
type Realtime struct {
	FinalizeTurn func(ctx context.Context, reason string) error
}

// UI groups the presentation-facing callbacks.
type UI struct {
	PublishSnapshot func(snapshot Snapshot)
	SetStatus       func(message string)
}

// FinalizePayload is handed to the remote finalizer, fire-and-forget.
type FinalizePayload struct {
	SessionInfo domain.SessionState
	GameID      string
}

// Processor drives post-generation outcome handling for one session.
type Processor struct {
	session  *domain.Session
	viewerID string
	ledger   *LedgerRef
	collab   Collaborators
	persist  Persistence
	realtime Realtime
	ui       UI

	activeGlobals map[string]struct{}
	activeLocals  map[string]struct{}
}

// NewProcessor wires a processor for a session. All collaborators are
// resolved at construction time.
func NewProcessor(session *domain.Session, viewerID string, ledger *LedgerRef, collab Collaborators, persist Persistence, realtime Realtime, ui UI) *Processor {
	if ledger == nil {
		ledger = &LedgerRef{}
	}
	return &Processor{
		session:       session,
		viewerID:      viewerID,
		ledger:        ledger,
		collab:        collab,
		persist:       persist,
		realtime:      realtime,
		ui:            ui,
		activeGlobals: make(map[string]struct{}),
		activeLocals:  make(map[string]struct{}),
	}
}

// Input is everything one turn hands to the processor.
type Input struct {
	ResponseText  string
	PromptEntry   *domain.HistoryEntry
	ResponseEntry *domain.HistoryEntry
	Node          *domain.Node
	Edges         []domain.Edge
	Actor         domain.ActorContext
	Turn          int
	AlreadyLogged bool
}

// Result reports whether the turn terminated the session.
type Result struct {
	Finalized bool
}

// Process handles one generated turn. See the package doc for the exact
// ordering; the notable invariants are at-least-once logging, snapshot
// publication before any finalize decision, ledger completion taking
// priority over edge routing, and the one-shot finalize guard shared by
// every terminal path.
func (p *Processor) Process(ctx context.Context, input Input) (Result, error) {
	parsed := p.collab.Parse(input.ResponseText)
	body := StripFooter(input.ResponseText)

	p.attachActorNames(input)
	if input.ResponseEntry != nil {
		input.ResponseEntry.Content = body
	}

	if !input.AlreadyLogged {
		p.logFallbackEntries(ctx, input)
	}

	if p.ledger.Current == nil {
		if p.ui.PublishSnapshot != nil {
			p.ui.PublishSnapshot(p.collab.Ledger.BuildSnapshot(nil))
		}
		return Result{Finalized: false}, nil
	}

	entry := LedgerEntry{
		Turn:      input.Turn,
		NodeID:    nodeID(input.Node),
		SlotIndex: input.Actor.SlotIndex,
		Role:      actorRole(input.Actor),
		Outcome:   parsed.LastLine,
		Variables: parsed.Variables,
		Actors:    parsed.Actors,
	}
	ledgerResult := p.collab.Ledger.Record(p.ledger.Current, entry)
	p.mergeVariables(parsed.Variables)

	rctx := p.routingContext(input, parsed)
	outgoing := domain.OutgoingEdges(input.Edges, rctx.NodeID)
	var edge *domain.Edge
	if p.collab.SelectEdge != nil {
		edge = p.collab.SelectEdge(outgoing, rctx)
	}

	p.appendTurnRecord(input, parsed, edge)

	if ledgerResult.Changed && p.ui.PublishSnapshot != nil {
		p.ui.PublishSnapshot(p.collab.Ledger.BuildSnapshot(p.ledger.Current))
	}
	if ledgerResult.Completed {
		if p.finalize(ctx, domain.FinalizeReasonRolesResolved, false) {
			return Result{Finalized: true}, nil
		}
		// Another path already finalized; nothing further to route.
		return Result{Finalized: true}, nil
	}

	return p.routeEdge(ctx, input, edge)
}

// routeEdge applies the selected edge's action to the session.
func (p *Processor) routeEdge(ctx context.Context, input Input, edge *domain.Edge) (Result, error) {
	if edge == nil {
		p.setStatus("no path leads out of the current node")
		if p.finalize(ctx, domain.FinalizeReasonNoPath, false) {
			return Result{Finalized: true}, nil
		}
		return Result{Finalized: true}, nil
	}
	if strings.TrimSpace(edge.To) == "" && edge.Action != domain.EdgeActionWin &&
		edge.Action != domain.EdgeActionLose && edge.Action != domain.EdgeActionDraw {
		p.setStatus("the next node could not be resolved")
		if p.finalize(ctx, domain.FinalizeReasonMissingNext, false) {
			return Result{Finalized: true}, nil
		}
		return Result{Finalized: true}, nil
	}

	switch edge.Action {
	case domain.EdgeActionWin:
		if p.session.ScoreWin() {
			next := strings.TrimSpace(edge.To)
			if next == "" {
				// A target-less win edge keeps the battle on the current node.
				next = p.session.State().CurrentNodeID
			}
			p.session.Advance(next)
			return Result{Finalized: false}, nil
		}
		p.finalize(ctx, domain.FinalizeReasonWin, false)
		return Result{Finalized: true}, nil

	case domain.EdgeActionLose:
		viewerDefeated := input.Actor.Participant != nil &&
			domain.ParticipantOwnerID(*input.Actor.Participant) == p.viewerID
		p.finalize(ctx, domain.FinalizeReasonLose, viewerDefeated)
		return Result{Finalized: true}, nil

	case domain.EdgeActionDraw:
		p.finalize(ctx, domain.FinalizeReasonDraw, false)
		return Result{Finalized: true}, nil

	default:
		p.session.Advance(edge.To)
		return Result{Finalized: false}, nil
	}
}

// finalize performs the one-shot session finalization. Returns false when a
// concurrent path already finalized; in that case no side effect runs twice.
func (p *Processor) finalize(ctx context.Context, reason domain.FinalizeReason, viewerDefeated bool) bool {
	if !p.session.TryFinalize(reason) {
		return false
	}

	if p.realtime.FinalizeTurn != nil {
		if err := p.realtime.FinalizeTurn(ctx, string(reason)); err != nil {
			log.Printf("outcome: realtime finalize failed session_id=%s reason=%s err=%v",
				p.session.State().ID, reason, err)
		}
	}
	if p.persist.CaptureBattleLog != nil {
		p.persist.CaptureBattleLog(reason)
	}
	if viewerDefeated {
		if p.persist.MarkSessionDefeated != nil {
			p.persist.MarkSessionDefeated()
		}
	} else if p.persist.ClearSessionRecord != nil {
		p.persist.ClearSessionRecord()
	}
	if p.persist.FinalizeRemote != nil {
		p.persist.FinalizeRemote(FinalizePayload{
			SessionInfo: p.session.State(),
			GameID:      p.session.State().GameID,
		})
	}
	if p.persist.EmitTelemetry != nil {
		p.persist.EmitTelemetry(ctx, telemetry.KindSessionFinalized, string(reason))
	}
	p.session.CompleteFinalize()
	return true
}

// logFallbackEntries guarantees at-least-once logging when no upstream
// collaborator logged the turn.
func (p *Processor) logFallbackEntries(ctx context.Context, input Input) {
	if p.persist.LogTurnEntries == nil {
		return
	}
	entries := make([]domain.HistoryEntry, 0, 2)
	if input.PromptEntry != nil {
		entry := *input.PromptEntry
		entry.Content = preview(entry.Content)
		entries = append(entries, entry)
	}
	if input.ResponseEntry != nil {
		entry := *input.ResponseEntry
		entry.Content = preview(entry.Content)
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return
	}
	if err := p.persist.LogTurnEntries(ctx, entries, input.Turn); err != nil {
		log.Printf("outcome: fallback log failed session_id=%s turn=%d err=%v",
			p.session.State().ID, input.Turn, err)
	}
}

// attachActorNames stamps the resolved actor name onto both history entries.
func (p *Processor) attachActorNames(input Input) {
	if input.Actor.Participant == nil {
		return
	}
	name := domain.ParticipantDisplayName(*input.Actor.Participant)
	for _, entry := range []*domain.HistoryEntry{input.PromptEntry, input.ResponseEntry} {
		if entry == nil {
			continue
		}
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]any, 2)
		}
		entry.Metadata["actor_name"] = name
		entry.Metadata["slot_index"] = input.Actor.SlotIndex
	}
}

func (p *Processor) appendTurnRecord(input Input, parsed Parsed, edge *domain.Edge) {
	if p.persist.AppendTurnRecord == nil {
		return
	}
	record := domain.TurnRecord{
		Turn:      input.Turn,
		NodeID:    nodeID(input.Node),
		SlotIndex: input.Actor.SlotIndex,
		Prompt:    historyContent(input.PromptEntry),
		Response:  historyContent(input.ResponseEntry),
		Outcome:   parsed.LastLine,
		Variables: parsed.Variables,
	}
	if edge != nil {
		record.Next = edge.To
		record.Action = edge.Action
	}
	p.persist.AppendTurnRecord(record)
}

func (p *Processor) routingContext(input Input, parsed Parsed) RoutingContext {
	state := p.session.State()
	return RoutingContext{
		Turn:          input.Turn,
		NodeID:        nodeID(input.Node),
		SlotIndex:     input.Actor.SlotIndex,
		Outcome:       parsed.LastLine,
		Variables:     parsed.Variables,
		ActiveGlobals: p.activeGlobals,
		ActiveLocals:  p.activeLocals,
		WinCount:      state.WinCount,
		BrawlEnabled:  state.BrawlEnabled,
	}
}

// mergeVariables adds parsed outcome variables to the active sets. Names
// prefixed "g:" are global, everything else is local to the session.
func (p *Processor) mergeVariables(variables []string) {
	for _, variable := range variables {
		variable = strings.TrimSpace(variable)
		if variable == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(variable, "g:"); ok {
			p.activeGlobals[rest] = struct{}{}
			continue
		}
		p.activeLocals[variable] = struct{}{}
	}
}

func (p *Processor) setStatus(message string) {
	if p.ui.SetStatus != nil {
		p.ui.SetStatus(message)
	}
}

// StripFooter removes the trailing machine-readable lines from a response:
// up to three non-blank trailing lines, skipping blank separators. What
// remains is the publicly visible response body.
func StripFooter(text string) string {
	lines := strings.Split(text, "\n")
	end := len(lines)
	stripped := 0
	for end > 0 && stripped < footerLineLimit {
		line := strings.TrimSpace(lines[end-1])
		if line == "" {
			end--
			continue
		}
		end--
		stripped++
	}
	body := strings.Join(lines[:end], "\n")
	return strings.TrimRight(body, "\n ")
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}

func nodeID(node *domain.Node) string {
	if node == nil {
		return ""
	}
	return node.ID
}

func historyContent(entry *domain.HistoryEntry) string {
	if entry == nil {
		return ""
	}
	return entry.Content
}

func actorRole(actor domain.ActorContext) string {
	if actor.Participant != nil {
		return actor.Participant.Role
	}
	if actor.Slot != nil {
		return actor.Slot.Role
	}
	return ""
}
