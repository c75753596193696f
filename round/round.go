package round

import (
	"errors"
	"time"
)

// Schedule errors.
var (
	ErrInvalidClaimDuration = errors.New("claim duration must be at least one second")
	ErrInvalidPlayDuration  = errors.New("play duration must be at least one second")
	ErrInvalidDailyReset    = errors.New("daily reset must be zero or longer than one full round")
)

// Phase is the part of the round cycle the game is in.
type Phase string

const (
	PhaseClaim Phase = "claim"
	PhasePlay  Phase = "play"
)

// State is the round view derived from the clock. It is never stored.
type State struct {
	Phase         Phase         `json:"phase"`
	TimeRemaining time.Duration `json:"timeRemaining"`
	RoundNumber   int           `json:"roundNumber"`
	CanJoinNow    bool          `json:"canJoinNow"`
	// StartedAt is when this round's claim phase opened. Unlike RoundNumber
	// it never repeats across daily resets.
	StartedAt time.Time `json:"startedAt"`
}

// Schedule holds the phase lengths. Durations are used at one-second resolution.
//
// When DailyReset is positive the round counter restarts at 1 every
// DailyReset window measured from the game start.
type Schedule struct {
	Claim      time.Duration
	Play       time.Duration
	DailyReset time.Duration
}

// DefaultSchedule is a 10s claim phase followed by a 120s play phase.
func DefaultSchedule() Schedule {
	return Schedule{Claim: 10 * time.Second, Play: 120 * time.Second}
}

// Validate checks the schedule can produce a cycle.
func (s Schedule) Validate() error {
	if s.claimSeconds() < 1 {
		return ErrInvalidClaimDuration
	}
	if s.playSeconds() < 1 {
		return ErrInvalidPlayDuration
	}
	if s.DailyReset != 0 && int64(s.DailyReset/time.Second) <= s.cycleSeconds() {
		return ErrInvalidDailyReset
	}
	return nil
}

// Cycle returns the length of one claim+play round.
func (s Schedule) Cycle() time.Duration {
	return time.Duration(s.cycleSeconds()) * time.Second
}

// At derives the round state at now for a game that started at start.
// A clock behind start is treated as the start instant.
func (s Schedule) At(start, now time.Time) State {
	claim, play := s.claimSeconds(), s.playSeconds()
	total := s.totalElapsedSeconds(start, now)
	elapsed := s.elapsedSeconds(start, now)
	cycle := claim + play

	roundNumber := int(elapsed/cycle) + 1
	pos := elapsed % cycle
	startedAt := start.Add(time.Duration(total-pos) * time.Second)

	if pos < claim {
		return State{
			Phase:         PhaseClaim,
			TimeRemaining: time.Duration(claim-pos) * time.Second,
			RoundNumber:   roundNumber,
			CanJoinNow:    true,
			StartedAt:     startedAt,
		}
	}
	return State{
		Phase:         PhasePlay,
		TimeRemaining: time.Duration(play-(pos-claim)) * time.Second,
		RoundNumber:   roundNumber,
		CanJoinNow:    false,
		StartedAt:     startedAt,
	}
}

// TimeUntilNextClaim is zero during a claim phase and the remaining play time otherwise.
func (s Schedule) TimeUntilNextClaim(start, now time.Time) time.Duration {
	st := s.At(start, now)
	if st.Phase == PhaseClaim {
		return 0
	}
	return st.TimeRemaining
}

// RoundStart returns when the claim phase of round opens, counted from start.
// With a daily reset the instant falls in the reset window containing now.
func (s Schedule) RoundStart(start, now time.Time, round int) time.Time {
	if round < 1 {
		round = 1
	}
	windowStart := start
	if s.DailyReset > 0 {
		total := s.totalElapsedSeconds(start, now)
		window := int64(s.DailyReset / time.Second)
		windowStart = start.Add(time.Duration(total-total%window) * time.Second)
	}
	return windowStart.Add(time.Duration(int64(round-1)*s.cycleSeconds()) * time.Second)
}

func (s Schedule) elapsedSeconds(start, now time.Time) int64 {
	elapsed := s.totalElapsedSeconds(start, now)
	if s.DailyReset > 0 {
		elapsed %= int64(s.DailyReset / time.Second)
	}
	return elapsed
}

func (s Schedule) totalElapsedSeconds(start, now time.Time) int64 {
	ms := now.Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms / 1000
}

func (s Schedule) claimSeconds() int64 { return int64(s.Claim / time.Second) }

func (s Schedule) playSeconds() int64 { return int64(s.Play / time.Second) }

func (s Schedule) cycleSeconds() int64 { return s.claimSeconds() + s.playSeconds() }
