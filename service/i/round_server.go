package i

import (
	"github.com/google/uuid"
)

// Reply is the result of one real-time action, addressed to the player who sent it.
type Reply struct {
	Player  uuid.UUID
	Payload []byte
}

// RoundServer defines the interface for the round loop of the shared maze.
type RoundServer interface {
	// Start polls the round clock until Stop is called.
	Start()

	// Stop ends the loop, closes channels, and emits the final state on EndChan.
	Stop()

	// StateChan returns the state change channel.
	StateChan() <-chan []byte

	// ActionChan returns the action channel. A frame is the action type,
	// the 16 byte player ID and the encoded action.
	ActionChan() chan<- []byte

	// ReplyChan returns per-player action results.
	ReplyChan() <-chan Reply

	// EndChan returns the end channel of the loop.
	EndChan() <-chan []byte
}
