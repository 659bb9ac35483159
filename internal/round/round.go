package round

import (
	"errors"

	"github.com/sofytk/lazy-daisy/internal/outcome"
)

var ErrNotActive = errors.New("round is not active")
var ErrNotResolving = errors.New("no pluck is resolving")
var ErrNotGameOver = errors.New("round is not over")
var ErrAlreadyStarted = errors.New("round already started")
var ErrPetalCount = errors.New("petal count out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Petal counts are randomized per round within this range.
const (
	MinPetals = 6
	MaxPetals = 15
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseActive    Phase = "active"
	PhaseResolving Phase = "resolving"
	PhaseGameOver  Phase = "game_over"
)

type State struct {
	Phase       Phase    `json:"phase"`
	PetalCount  int      `json:"petal_count"`
	TotalPetals int      `json:"total_petals"`
	Pool        []string `json:"pool"`
	LastOutcome string   `json:"last_outcome,omitempty"`
}

type CommandType string

const (
	CmdStart  CommandType = "Start"
	CmdPluck  CommandType = "Pluck"
	CmdSettle CommandType = "Settle"
	CmdReset  CommandType = "Reset"
)

type Command struct {
	Type        CommandType
	TotalPetals int // Start/Reset only
}

type EventType string

const (
	EvtRoundStarted   EventType = "RoundStarted"
	EvtPetalPlucked   EventType = "PetalPlucked"
	EvtRoundCompleted EventType = "RoundCompleted"
)

type Event struct {
	Type      EventType
	Outcome   string
	Remaining int
}

// NewState returns an idle round carrying the given outcome pool. An empty
// pool falls back to the built-in pair.
func NewState(pool []string) State {
	return State{
		Phase: PhaseIdle,
		Pool:  outcome.PoolOrDefault(pool),
	}
}

// RandomTotal picks a petal count in [MinPetals, MaxPetals].
func RandomTotal(rng func() float64) int {
	span := MaxPetals - MinPetals + 1
	n := MinPetals + int(rng()*float64(span))
	if n > MaxPetals {
		n = MaxPetals
	}
	return n
}

// Apply advances the round state machine. It is pure: the caller owns the
// returned state, and rng is the only source of nondeterminism.
//
// Start: Idle -> Active. Pluck: Active -> Resolving, consuming one petal and
// selecting an outcome; a pluck while one is already resolving is rejected,
// not queued. Settle: Resolving -> GameOver when petals hit zero (emitting
// RoundCompleted exactly once), Resolving -> Active otherwise. Reset:
// GameOver -> Active with a fresh total.
func Apply(s State, cmd Command, rng func() float64) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdStart:
		if s.Phase != PhaseIdle {
			return nil, s, ErrAlreadyStarted
		}
		if cmd.TotalPetals < MinPetals || cmd.TotalPetals > MaxPetals {
			return nil, s, ErrPetalCount
		}
		newState.Phase = PhaseActive
		newState.TotalPetals = cmd.TotalPetals
		newState.PetalCount = cmd.TotalPetals
		newState.LastOutcome = ""
		return []Event{{Type: EvtRoundStarted, Remaining: newState.PetalCount}}, newState, nil

	case CmdPluck:
		// Plucking at 0 petals lands in GameOver/Resolving and is rejected
		// here, distinguishing it from plucking the last petal.
		if s.Phase != PhaseActive {
			return nil, s, ErrNotActive
		}
		text, err := outcome.Select(s.Pool, rng)
		if err != nil {
			return nil, s, err
		}
		newState.PetalCount = s.PetalCount - 1
		newState.LastOutcome = text
		newState.Phase = PhaseResolving
		return []Event{{Type: EvtPetalPlucked, Outcome: text, Remaining: newState.PetalCount}}, newState, nil

	case CmdSettle:
		if s.Phase != PhaseResolving {
			return nil, s, ErrNotResolving
		}
		if s.PetalCount == 0 {
			newState.Phase = PhaseGameOver
			return []Event{{Type: EvtRoundCompleted, Outcome: s.LastOutcome}}, newState, nil
		}
		newState.Phase = PhaseActive
		return nil, newState, nil

	case CmdReset:
		if s.Phase != PhaseGameOver {
			return nil, s, ErrNotGameOver
		}
		if cmd.TotalPetals < MinPetals || cmd.TotalPetals > MaxPetals {
			return nil, s, ErrPetalCount
		}
		newState.Phase = PhaseActive
		newState.TotalPetals = cmd.TotalPetals
		newState.PetalCount = cmd.TotalPetals
		newState.LastOutcome = ""
		return []Event{{Type: EvtRoundStarted, Remaining: newState.PetalCount}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
