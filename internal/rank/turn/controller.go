// Package turn drives one prompt-generation-outcome cycle per invocation and
// owns the per-session advancing guard.
package turn

import (
	"context"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/errors/i18n"
	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/generation"
	"github.com/seolki/rankarena/internal/rank/outcome"
	"github.com/seolki/rankarena/internal/telemetry"
)

// CompileRequest is handed to the prompt compiler.
type CompileRequest struct {
	Node          *domain.Node
	Slots         []domain.Slot
	HistoryText   string
	ActiveGlobals []string
	ActiveLocals  []string
	CurrentSlot   int
}

// CompileResult is the compiled prompt plus the slot the compiler settled on.
type CompileResult struct {
	Text       string
	PickedSlot int
}

// PromptCompiler builds the generation prompt for a node.
type PromptCompiler func(req CompileRequest) CompileResult

// OutcomeProcessor consumes the generated turn.
type OutcomeProcessor interface {
	Process(ctx context.Context, input outcome.Input) (outcome.Result, error)
}

// GameView exposes the live graph and roster state the controller reads each
// turn. Everything is re-read per invocation; nothing is cached across turns.
type GameView struct {
	Nodes            func() []domain.Node
	Edges            func() []domain.Edge
	Slots            func() []domain.Slot
	Roster           func() []domain.Participant
	SystemPrompt     func() string
	HistoryText      func() string
	History          func() []domain.HistoryEntry
	ActiveGlobals    func() []string
	ActiveLocals     func() []string
	PreflightPending func() bool
}

// Config wires a controller. Generator, Compile, and Processor are required;
// the rest default to no-ops or empty views.
type Config struct {
	Session      *domain.Session
	ViewerID     string
	Locale       string
	Realtime     bool
	ResponseRole string

	Generator generation.Generator
	Compile   PromptCompiler
	Processor OutcomeProcessor
	Game      GameView

	// RecordParticipation is invoked after an authorized user submission so
	// the realtime manager can reset inactivity strikes. Optional.
	RecordParticipation func(ctx context.Context, ownerID, kind string)
	SetStatus           func(message string)
	// EmitTelemetry records session events such as voiding. Optional.
	EmitTelemetry func(ctx context.Context, kind, message string)
}

// Controller advances a session one turn at a time.
type Controller struct {
	cfg Config
}

// NewController builds a controller for one session.
func NewController(cfg Config) *Controller {
	if cfg.ResponseRole == "" {
		cfg.ResponseRole = "assistant"
	}
	return &Controller{cfg: cfg}
}

// Input is one advance request. Text carries the participant's submission for
// user action nodes and the pre-authored response for manual nodes.
type Input struct {
	Text        string
	APIKey      string
	APIVersion  string
	GeminiMode  string
	GeminiModel string
}

// Result reports the turn's outcome.
type Result struct {
	Finalized bool
	Turn      int
}

var tracer = otel.Tracer("github.com/seolki/rankarena/internal/rank/turn")

// Advance runs one full turn cycle. Re-entrant calls while a turn is in
// flight are rejected. Every abort path reports a localized status message
// and leaves the session in its prior state, except provider key failures,
// which void the session.
func (c *Controller) Advance(ctx context.Context, input Input) (Result, error) {
	state := c.cfg.Session.State()

	ctx, span := tracer.Start(ctx, "turn.advance")
	span.SetAttributes(
		attribute.String("session.id", state.ID),
		attribute.String("game.id", state.GameID),
		attribute.Int("turn", state.Turn),
	)
	defer span.End()

	result, err := c.advance(ctx, input, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
	}
	return result, err
}

func (c *Controller) advance(ctx context.Context, input Input, state domain.SessionState) (Result, error) {
	if c.cfg.Game.PreflightPending != nil && c.cfg.Game.PreflightPending() {
		return Result{}, c.abort(apperrors.New(apperrors.CodePreflightPending, "preflight reconciliation is still pending"))
	}

	node := domain.FindNode(c.viewNodes(), state.CurrentNodeID)
	if node == nil {
		return Result{}, c.abort(apperrors.New(apperrors.CodeNodeMissing, "current node not found").
			WithMetadata(map[string]string{"NodeID": state.CurrentNodeID}))
	}

	if err := c.cfg.Session.BeginTurn(); err != nil {
		return Result{}, c.abort(err)
	}
	defer c.cfg.Session.EndTurn()

	slots := c.viewSlots()
	roster := c.viewRoster()
	actor := domain.ResolveActorContext(node, slots, roster)

	if err := c.authorize(node, actor); err != nil {
		return Result{}, c.abort(err)
	}

	compiled := c.compile(node, slots, actor)

	responseText, err := c.produceResponse(ctx, input, node, state, compiled)
	if err != nil {
		return Result{}, err
	}

	if c.cfg.Realtime && node.SlotType == domain.SlotTypeUserAction && c.cfg.RecordParticipation != nil {
		c.cfg.RecordParticipation(ctx, c.cfg.ViewerID, "action")
	}

	promptEntry := &domain.HistoryEntry{
		Role:    "system",
		Content: compiled.Text,
		Public:  true,
		Turn:    state.Turn,
	}
	responseEntry := &domain.HistoryEntry{
		Role:    c.cfg.ResponseRole,
		Content: responseText,
		Public:  true,
		Turn:    state.Turn,
	}

	processed, err := c.cfg.Processor.Process(ctx, outcome.Input{
		ResponseText:  responseText,
		PromptEntry:   promptEntry,
		ResponseEntry: responseEntry,
		Node:          node,
		Edges:         c.viewEdges(),
		Actor:         actor,
		Turn:          state.Turn,
	})
	if err != nil {
		return Result{}, c.abort(err)
	}

	return Result{
		Finalized: processed.Finalized,
		Turn:      c.cfg.Session.State().Turn,
	}, nil
}

// authorize enforces that user-driven nodes only accept the owning viewer.
func (c *Controller) authorize(node *domain.Node, actor domain.ActorContext) error {
	if node.SlotType != domain.SlotTypeUserAction && node.SlotType != domain.SlotTypeManual {
		return nil
	}
	if actor.Participant == nil {
		return apperrors.New(apperrors.CodeNotAuthorizedActor, "no participant occupies the acting slot")
	}
	owner := domain.ParticipantOwnerID(*actor.Participant)
	if owner == "" || owner != c.cfg.ViewerID {
		return apperrors.New(apperrors.CodeNotAuthorizedActor, "viewer does not own the acting participant").
			WithMetadata(map[string]string{"Owner": owner})
	}
	return nil
}

// produceResponse yields the response text for the turn: the manual override
// when the node is manual, otherwise a provider generation. Key failures void
// the session; any other generation failure substitutes the fixed fallback so
// the processor always receives parseable text.
func (c *Controller) produceResponse(ctx context.Context, input Input, node *domain.Node, state domain.SessionState, compiled CompileResult) (string, error) {
	if node.SlotType == domain.SlotTypeManual {
		return input.Text, nil
	}

	if c.cfg.Realtime {
		if err := c.cfg.Session.LockAPIVersion(input.APIVersion); err != nil {
			c.voidSession(ctx, "provider version lock rejected")
			return "", c.abort(err)
		}
	}

	prompt := compiled.Text
	if node.SlotType == domain.SlotTypeUserAction && strings.TrimSpace(input.Text) != "" {
		prompt = prompt + "\n\n" + input.Text
	}

	resp, err := c.cfg.Generator.Generate(ctx, generation.Request{
		APIKey:         input.APIKey,
		System:         c.viewString(c.cfg.Game.SystemPrompt),
		Prompt:         prompt,
		APIVersion:     input.APIVersion,
		GeminiMode:     input.GeminiMode,
		GeminiModel:    input.GeminiModel,
		SessionID:      state.ID,
		GameID:         state.GameID,
		PromptRole:     "system",
		ResponseRole:   c.cfg.ResponseRole,
		ResponsePublic: true,
		History:        c.viewHistory(),
	})
	if err != nil {
		if generation.IsAPIKeyError(err) {
			c.voidSession(ctx, "provider key rejected: "+string(apperrors.GetCode(err)))
			return "", c.abort(err)
		}
		log.Printf("turn: generation failed, substituting fallback session_id=%s turn=%d err=%v",
			state.ID, state.Turn, err)
		return generation.FallbackResponseText, nil
	}
	if strings.TrimSpace(resp.Text) == "" {
		log.Printf("turn: empty generation, substituting fallback session_id=%s turn=%d",
			state.ID, state.Turn)
		return generation.FallbackResponseText, nil
	}
	return resp.Text, nil
}

func (c *Controller) compile(node *domain.Node, slots []domain.Slot, actor domain.ActorContext) CompileResult {
	if c.cfg.Compile == nil {
		return CompileResult{PickedSlot: actor.SlotIndex}
	}
	return c.cfg.Compile(CompileRequest{
		Node:          node,
		Slots:         slots,
		HistoryText:   c.viewString(c.cfg.Game.HistoryText),
		ActiveGlobals: c.viewStrings(c.cfg.Game.ActiveGlobals),
		ActiveLocals:  c.viewStrings(c.cfg.Game.ActiveLocals),
		CurrentSlot:   actor.SlotIndex,
	})
}

// abort publishes the localized status message for the error and passes the
// error through unchanged.
func (c *Controller) abort(err error) error {
	if c.cfg.SetStatus != nil {
		catalog := i18n.GetCatalog(c.cfg.Locale)
		c.cfg.SetStatus(catalog.Format(string(apperrors.GetCode(err)), apperrors.GetMetadata(err)))
	}
	return err
}

func (c *Controller) viewNodes() []domain.Node {
	if c.cfg.Game.Nodes == nil {
		return nil
	}
	return c.cfg.Game.Nodes()
}

func (c *Controller) viewEdges() []domain.Edge {
	if c.cfg.Game.Edges == nil {
		return nil
	}
	return c.cfg.Game.Edges()
}

func (c *Controller) viewSlots() []domain.Slot {
	if c.cfg.Game.Slots == nil {
		return nil
	}
	return c.cfg.Game.Slots()
}

// voidSession marks the session unusable and reports the transition.
func (c *Controller) voidSession(ctx context.Context, message string) {
	c.cfg.Session.Void()
	if c.cfg.EmitTelemetry != nil {
		c.cfg.EmitTelemetry(ctx, telemetry.KindSessionVoided, message)
	}
}

func (c *Controller) viewHistory() []domain.HistoryEntry {
	if c.cfg.Game.History == nil {
		return nil
	}
	return c.cfg.Game.History()
}

func (c *Controller) viewRoster() []domain.Participant {
	if c.cfg.Game.Roster == nil {
		return nil
	}
	return c.cfg.Game.Roster()
}

func (c *Controller) viewString(fn func() string) string {
	if fn == nil {
		return ""
	}
	return fn()
}

func (c *Controller) viewStrings(fn func() []string) []string {
	if fn == nil {
		return nil
	}
	return fn()
}
