package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/platform/timeouts"
	"github.com/seolki/rankarena/internal/rank/adoption"
	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/preflight"
	"github.com/seolki/rankarena/internal/rank/realtime"
	"github.com/seolki/rankarena/internal/storage"
	"github.com/seolki/rankarena/internal/storage/sqlite"
	"github.com/seolki/rankarena/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// Server hosts the arena HTTP/WebSocket process: the realtime hub, turn-state
// backfill, and the remote-session adoption watcher.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *sqlite.Store
	hub        *realtime.Hub
	emitter    *telemetry.Emitter
	watcher    *adoption.Watcher
}

// rosterFile is the adoption preflight input loaded from disk.
type rosterFile struct {
	Participants []domain.Participant
	Slots        []domain.Slot
	Matching     preflight.Matching
}

// NewServer wires the arena process from configuration.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	store, err := sqlite.Open(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	server := &Server{
		httpAddr: httpAddr,
		store:    store,
		hub:      realtime.NewHub(),
		emitter:  telemetry.NewEmitter(store),
	}

	mux := http.NewServeMux()
	mux.Handle("/", server.hub.Handler())
	mux.HandleFunc("/turn-states", server.handleTurnStates)
	mux.HandleFunc("/sessions", server.handleSession)
	server.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	gameID := strings.TrimSpace(cfg.GameID)
	if gameID != "" {
		roster, err := loadRosterFile(cfg.RosterPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load roster: %w", err)
		}
		adopter := adoption.NewAdopter(adoption.Config{
			OwnerFilter: cfg.OwnerFilter,
			Roster:      func() []domain.Participant { return roster.Participants },
			SlotLayout:  func() []domain.Slot { return roster.Slots },
			Matching:    func() preflight.Matching { return roster.Matching },
			Boot:        server.bootSession,
		})
		server.watcher = adoption.NewWatcher(adoption.WatcherConfig{
			GameID:   gameID,
			Port:     server.hub,
			Adopter:  adopter,
			Interval: cfg.AdoptInterval,
			Poll: func(ctx context.Context) (adoption.SessionRow, bool, error) {
				record, ok, err := store.LatestActiveSession(ctx, gameID, cfg.OwnerFilter)
				if err != nil || !ok {
					return adoption.SessionRow{}, false, err
				}
				return adoption.SessionRow{
					ID:        record.ID,
					Status:    record.Status,
					OwnerID:   record.OwnerID,
					GameID:    record.GameID,
					CreatedAt: record.CreatedAt,
				}, true, nil
			},
		})
	}

	return server, nil
}

// ListenAndServe runs the HTTP server and the adoption watcher until the
// context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("arena server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	group, groupCtx := errgroup.WithContext(ctx)

	log.Printf("arena server listening on %s", s.httpAddr)
	group.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	if s.watcher != nil {
		group.Go(func() error {
			return s.watcher.Run(groupCtx)
		})
	}

	return group.Wait()
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}
}

// bootSession records an adopted session locally and emits telemetry. The
// row may already exist when this node originally created it.
func (s *Server) bootSession(ctx context.Context, row adoption.SessionRow, roster []domain.Participant) error {
	err := s.store.CreateSession(ctx, storage.SessionRecord{
		ID:        row.ID,
		GameID:    row.GameID,
		OwnerID:   row.OwnerID,
		Status:    "active",
		CreatedAt: row.CreatedAt,
	})
	if err != nil && !errors.Is(err, storage.ErrActiveSessionExists) {
		return fmt.Errorf("persist adopted session: %w", err)
	}

	if err := s.emitter.EmitEvent(ctx, telemetry.KindSessionAdopted, row.ID, row.GameID,
		fmt.Sprintf("adopted with %d participants", len(roster))); err != nil {
		log.Printf("telemetry: emit session_adopted: %v", err)
	}
	return nil
}

// handleTurnStates serves reconnect backfill: turn-state events for a
// session with turn greater than since.
func (s *Server) handleTurnStates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	sinceTurn := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "since must be an integer", http.StatusBadRequest)
			return
		}
		sinceTurn = parsed
	}

	events, err := s.store.ListTurnStatesSince(r.Context(), sessionID, sinceTurn)
	if err != nil {
		log.Printf("turn-states: list session_id=%s: %v", sessionID, err)
		apperrors.WriteHTTP(w, err, requestLocale(r))
		return
	}

	type turnStatePayload struct {
		ID        string          `json:"id"`
		SessionID string          `json:"session_id"`
		Turn      int             `json:"turn"`
		Reason    string          `json:"reason"`
		Snapshot  json.RawMessage `json:"snapshot,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
	}
	payload := struct {
		Events []turnStatePayload `json:"events"`
	}{Events: make([]turnStatePayload, 0, len(events))}
	for _, event := range events {
		payload.Events = append(payload.Events, turnStatePayload{
			ID:        event.ID,
			SessionID: event.SessionID,
			Turn:      event.Turn,
			Reason:    event.Reason,
			Snapshot:  json.RawMessage(event.Snapshot),
			CreatedAt: event.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("turn-states: encode response: %v", err)
	}
}

// handleSession serves a single session record by ID. Missing records map
// to 404 and precondition failures to 409, localized per Accept-Language.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("id"))
	if sessionID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	record, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CodeNotFound) {
			log.Printf("sessions: get id=%s: %v", sessionID, err)
		}
		apperrors.WriteHTTP(w, err, requestLocale(r))
		return
	}

	payload := struct {
		ID        string    `json:"id"`
		GameID    string    `json:"game_id"`
		OwnerID   string    `json:"owner_id"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}{
		ID:        record.ID,
		GameID:    record.GameID,
		OwnerID:   record.OwnerID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("sessions: encode response: %v", err)
	}
}

// requestLocale picks the response locale from the Accept-Language header.
func requestLocale(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if raw == "" {
		return apperrors.DefaultLocale
	}
	first := strings.Split(raw, ",")[0]
	if idx := strings.Index(first, ";"); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return apperrors.DefaultLocale
	}
	return first
}

// loadRosterFile reads the adoption preflight roster. An empty path yields
// an empty roster, which the adopter refuses at boot time.
func loadRosterFile(path string) (rosterFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return rosterFile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return rosterFile{}, err
	}
	var roster rosterFile
	if err := json.Unmarshal(raw, &roster); err != nil {
		return rosterFile{}, fmt.Errorf("decode roster file: %w", err)
	}
	return roster, nil
}
