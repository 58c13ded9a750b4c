package adoption

import (
	"context"
	"encoding/json"
	"log"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/rank/realtime"
)

// DefaultPollInterval is how often the watcher polls for a candidate row
// between change-feed deliveries.
const DefaultPollInterval = 5 * time.Second

// WatcherConfig wires a Watcher.
type WatcherConfig struct {
	GameID   string
	Port     realtime.Port
	Adopter  *Adopter
	Interval time.Duration

	// Poll fetches the latest active session row for the game. ok false
	// means no candidate exists.
	Poll func(ctx context.Context) (row SessionRow, ok bool, err error)
}

// Watcher discovers adoption candidates for one game, combining a poll loop
// with the game's session change feed.
type Watcher struct {
	cfg WatcherConfig
}

// NewWatcher builds a watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	return &Watcher{cfg: cfg}
}

// Run watches until the context is canceled. Adoption refusals are expected
// while no suitable candidate exists and are only logged.
func (w *Watcher) Run(ctx context.Context) error {
	var unsubscribe func()
	if w.cfg.Port != nil {
		var err error
		unsubscribe, err = w.cfg.Port.Subscribe(realtime.GameSessionsTopic(w.cfg.GameID), func(payload []byte) {
			var row SessionRow
			if err := json.Unmarshal(payload, &row); err != nil {
				log.Printf("adoption: undecodable session row game_id=%s err=%v", w.cfg.GameID, err)
				return
			}
			w.tryAdopt(ctx, row)
		})
		if err != nil {
			return err
		}
		defer unsubscribe()
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	if w.cfg.Poll == nil {
		return
	}
	row, ok, err := w.cfg.Poll(ctx)
	if err != nil {
		log.Printf("adoption: poll failed game_id=%s err=%v", w.cfg.GameID, err)
		return
	}
	if !ok {
		return
	}
	w.tryAdopt(ctx, row)
}

func (w *Watcher) tryAdopt(ctx context.Context, row SessionRow) {
	if w.cfg.Adopter == nil {
		return
	}
	if err := w.cfg.Adopter.Adopt(ctx, row); err != nil {
		if apperrors.IsCode(err, apperrors.CodeSessionNotAdopted) && w.cfg.Adopter.Adopted(row.ID) {
			return
		}
		log.Printf("adoption: candidate refused session_id=%s game_id=%s err=%v", row.ID, w.cfg.GameID, err)
	}
}
