package economy

import (
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/google/uuid"
)

// EventKind names something that happened in the round.
type EventKind string

const (
	EventRoundStarted      EventKind = "round_started"
	EventPlotClaimed       EventKind = "plot_claimed"
	EventFeePaid           EventKind = "fee_paid"
	EventTreasureCollected EventKind = "treasure_collected"
	EventExitReached       EventKind = "exit_reached"
	EventGoldBought        EventKind = "gold_bought"
	EventPaymentFailed     EventKind = "payment_failed"
)

// Event is queued by the engine and drained once per tick.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Round    int           `json:"round"`
	Player   uuid.UUID     `json:"player"`
	Position maze.Position `json:"position"`
	Amount   int64         `json:"amount"`
	Err      string        `json:"error,omitempty"`
}

// DrainEvents returns queued events in order and clears the queue.
func (e *Engine) DrainEvents() []Event {
	e.Lock()
	defer e.Unlock()
	out := e.events
	e.events = nil
	return out
}

func (e *Engine) emit(ev Event) {
	if ev.Round == 0 {
		ev.Round = e.board.Round
	}
	e.events = append(e.events, ev)
}
