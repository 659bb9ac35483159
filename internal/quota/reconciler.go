package quota

import (
	"errors"
	"log"
)

var ErrExhausted = errors.New("quota exhausted")
var ErrSpendInFlight = errors.New("spend already in flight")

// Source says where the displayed value last came from.
type Source string

const (
	SourceLocal           Source = "local"
	SourceServerConfirmed Source = "server_confirmed"
)

// State is the two-field quota model: Confirmed is what the UI displays,
// PendingSpend counts optimistic decrements the server has not acknowledged.
type State struct {
	Confirmed    int    `json:"remaining"`
	PendingSpend int    `json:"-"`
	Source       Source `json:"-"`
}

// Merge reconciles a fresh server value with local pending spends. Pending
// decrements already applied locally are subtracted from the authoritative
// value so a refresh racing a spend cannot resurrect a consumed round.
func Merge(serverValue, pendingSpend int) int {
	v := serverValue - pendingSpend
	if v < 0 {
		v = 0
	}
	return v
}

// Reconciler owns the "daisies left" counter for one session. It is not
// goroutine safe: the session actor is its only caller.
type Reconciler struct {
	state State
}

func NewReconciler(serverValue int) *Reconciler {
	if serverValue < 0 {
		serverValue = 0
	}
	return &Reconciler{state: State{Confirmed: serverValue, Source: SourceServerConfirmed}}
}

func (r *Reconciler) State() State   { return r.state }
func (r *Reconciler) Remaining() int { return r.state.Confirmed }

// Spend applies one optimistic decrement. The caller must follow up with
// ConfirmSpend once the ledger call returns. Only one spend may be pending;
// a second is rejected rather than double-spent.
func (r *Reconciler) Spend() (State, error) {
	if r.state.PendingSpend > 0 {
		return r.state, ErrSpendInFlight
	}
	if r.state.Confirmed == 0 {
		return r.state, ErrExhausted
	}
	r.state.Confirmed--
	r.state.PendingSpend++
	r.state.Source = SourceLocal
	return r.state, nil
}

// ConfirmSpend settles the pending decrement. A failed confirmation is
// fail-open: the local decrement stands and the drift is left for the next
// refresh to correct, so an already-played round is never clawed back.
func (r *Reconciler) ConfirmSpend(err error) State {
	if r.state.PendingSpend == 0 {
		return r.state
	}
	r.state.PendingSpend--
	if err != nil {
		log.Printf("[WARN] quota spend confirmation failed, keeping local value %d: %v", r.state.Confirmed, err)
		return r.state
	}
	r.state.Source = SourceServerConfirmed
	return r.state
}

// Refresh replaces the counter with a fresh authoritative read.
func (r *Reconciler) Refresh(serverValue int) State {
	r.state.Confirmed = Merge(serverValue, r.state.PendingSpend)
	r.state.Source = SourceServerConfirmed
	return r.state
}

// Grant adds replenished units after a confirmed purchase or payment.
func (r *Reconciler) Grant(delta int) State {
	if delta < 0 {
		return r.state
	}
	r.state.Confirmed += delta
	return r.state
}
