package quota

import (
	"errors"
	"testing"
)

func TestSpend_ExhaustedDoesNotMutate(t *testing.T) {
	r := NewReconciler(0)
	before := r.State()
	_, err := r.Spend()
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
	if r.State() != before {
		t.Fatalf("exhausted spend mutated state: %+v -> %+v", before, r.State())
	}
}

func TestSpend_OptimisticDecrement(t *testing.T) {
	r := NewReconciler(2)
	s, err := r.Spend()
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if s.Confirmed != 1 || s.PendingSpend != 1 || s.Source != SourceLocal {
		t.Fatalf("unexpected state after spend: %+v", s)
	}
}

func TestSpend_SecondWhilePendingRejected(t *testing.T) {
	r := NewReconciler(5)
	if _, err := r.Spend(); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	if _, err := r.Spend(); !errors.Is(err, ErrSpendInFlight) {
		t.Fatalf("want ErrSpendInFlight, got %v", err)
	}
	if r.Remaining() != 4 {
		t.Fatalf("rejected spend must not decrement again, remaining=%d", r.Remaining())
	}
}

func TestConfirmSpend(t *testing.T) {
	cases := []struct {
		name       string
		confirmErr error
		wantSource Source
	}{
		{"success marks server confirmed", nil, SourceServerConfirmed},
		{"failure keeps local decrement", errors.New("timeout"), SourceLocal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReconciler(3)
			if _, err := r.Spend(); err != nil {
				t.Fatalf("spend: %v", err)
			}
			s := r.ConfirmSpend(tc.confirmErr)
			if s.Confirmed != 2 {
				t.Fatalf("want remaining 2, got %d", s.Confirmed)
			}
			if s.PendingSpend != 0 {
				t.Fatalf("pending should clear, got %d", s.PendingSpend)
			}
			if s.Source != tc.wantSource {
				t.Fatalf("want source %v, got %v", tc.wantSource, s.Source)
			}
			// Spendable again after settling.
			if _, err := r.Spend(); err != nil {
				t.Fatalf("spend after confirm: %v", err)
			}
		})
	}
}

func TestConfirmSpend_NoPendingIsNoop(t *testing.T) {
	r := NewReconciler(3)
	before := r.State()
	if got := r.ConfirmSpend(nil); got != before {
		t.Fatalf("confirm with no pending mutated state: %+v", got)
	}
}

func TestRefresh_MergesPending(t *testing.T) {
	r := NewReconciler(1)
	if _, err := r.Spend(); err != nil {
		t.Fatalf("spend: %v", err)
	}
	// Server still says 1 because the spend has not landed there yet.
	s := r.Refresh(1)
	if s.Confirmed != 0 {
		t.Fatalf("refresh must subtract pending spend, got %d", s.Confirmed)
	}
	// Server caught up and granted two more.
	r.ConfirmSpend(nil)
	s = r.Refresh(2)
	if s.Confirmed != 2 || s.Source != SourceServerConfirmed {
		t.Fatalf("unexpected state after refresh: %+v", s)
	}
}

func TestMerge_NeverNegative(t *testing.T) {
	if got := Merge(0, 1); got != 0 {
		t.Fatalf("want 0, got %d", got)
	}
	if got := Merge(3, 1); got != 2 {
		t.Fatalf("want 2, got %d", got)
	}
}

func TestGrant(t *testing.T) {
	r := NewReconciler(0)
	if s := r.Grant(1); s.Confirmed != 1 {
		t.Fatalf("want 1, got %d", s.Confirmed)
	}
	if s := r.Grant(-5); s.Confirmed != 1 {
		t.Fatalf("negative grant must be ignored, got %d", s.Confirmed)
	}
}

func TestNewReconciler_ClampsNegative(t *testing.T) {
	if r := NewReconciler(-2); r.Remaining() != 0 {
		t.Fatalf("want 0, got %d", r.Remaining())
	}
}
