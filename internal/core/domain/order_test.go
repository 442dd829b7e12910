package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusAccepted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusCompleted, StatusCancelled} {
		if !s.IsTerminal() || s.IsActive() {
			t.Errorf("%s should be terminal and inactive", s)
		}
	}
	for _, s := range []OrderStatus{StatusPending, StatusAccepted} {
		if s.IsTerminal() || !s.IsActive() {
			t.Errorf("%s should be active", s)
		}
	}
}

func TestOrder_Participants(t *testing.T) {
	runner := int64(20)
	o := &Order{ClientID: 10}

	if _, ok := o.Counterpart(10); ok {
		t.Fatalf("client has no counterpart before acceptance")
	}
	if o.IsParticipant(20) {
		t.Fatalf("runner is not a participant before acceptance")
	}

	o.RunnerID = &runner
	if id, ok := o.Counterpart(10); !ok || id != 20 {
		t.Fatalf("client counterpart: got %d, %v", id, ok)
	}
	if id, ok := o.Counterpart(20); !ok || id != 10 {
		t.Fatalf("runner counterpart: got %d, %v", id, ok)
	}
	if !o.IsParticipant(20) || o.IsParticipant(30) {
		t.Fatalf("unexpected participant check")
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("accept order 3: %w", ErrAlreadyAccepted), CodeAlreadyAccepted},
		{ErrTransitionConflict, CodeInvalidState},
		{ErrUserNotFound, CodeNotFound},
		{ErrEmptyMessage, CodeValidationFailed},
		{ErrTokenExpired, CodeExpired},
		{errors.New("boom"), CodeInternal},
		{nil, CodeInternal},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
