// Package statemachine implements the pure transition function
// (current_status, event, cancel_reason) -> next_status described in
// spec §4.2; the cancel reason is an input that Apply checks against the
// table. It has no I/O and no side effects; the orchestrator decides
// which event applies on a given tick and the ledger is the only thing
// that persists the result.
package statemachine

import (
	"errors"
	"fmt"

	"github.com/alejandrodnm/martin/internal/domain"
)

// Event is a domain event recognized by the transition table. Unlike
// Status, events are not persisted — they exist only for the duration
// of one Apply call.
type Event string

const (
	EventStartSearch      Event = "start_search"
	EventQualifyingSignal Event = "qualifying_signal"
	EventConfirmReached   Event = "confirm_reached"
	EventCapPass          Event = "cap_pass"
	EventUserOK           Event = "user_ok"
	EventAutoOK           Event = "auto_ok"
	EventFilled           Event = "filled"
	EventRejected         Event = "rejected"
	EventCancel           Event = "cancel"
)

// ErrIllegalTransition is returned when (status, event) is not present in
// the table, or the table entry does not permit the supplied reason. The
// caller must not mutate any trade when this is returned (spec §4.2,
// "any transition attempt from a terminal state, or any transition not
// present in the table above, must be rejected ... and must not mutate
// the trade").
var ErrIllegalTransition = errors.New("statemachine: illegal transition")

type transition struct {
	next            domain.Status
	allowedReasons  map[domain.CancelReason]bool // nil => reason must be empty
}

func terminal(next domain.Status, reasons ...domain.CancelReason) transition {
	if len(reasons) == 0 {
		return transition{next: next}
	}
	set := make(map[domain.CancelReason]bool, len(reasons))
	for _, r := range reasons {
		set[r] = true
	}
	return transition{next: next, allowedReasons: set}
}

func plain(next domain.Status) transition {
	return transition{next: next}
}

// table[status][event] -> transition. Built directly from spec.md §4.2.
var table = map[domain.Status]map[Event]transition{
	domain.StatusNew: {
		EventStartSearch: plain(domain.StatusSearchingSignal),
		EventCancel: terminal(domain.StatusCancelled,
			domain.CancelReasonNoSignal, domain.CancelReasonExpired, domain.CancelReasonPaused),
	},
	domain.StatusSearchingSignal: {
		EventQualifyingSignal: plain(domain.StatusSignalled),
		EventCancel:            terminal(domain.StatusCancelled, domain.CancelReasonNoSignal),
	},
	domain.StatusSignalled: {
		EventConfirmReached: plain(domain.StatusWaitingConfirm),
		EventCancel: terminal(domain.StatusCancelled,
			domain.CancelReasonLate, domain.CancelReasonLowQuality),
	},
	domain.StatusWaitingConfirm: {
		EventConfirmReached: plain(domain.StatusWaitingCap),
		EventCancel: terminal(domain.StatusCancelled,
			domain.CancelReasonExpired, domain.CancelReasonPaused),
	},
	domain.StatusWaitingCap: {
		EventCapPass: plain(domain.StatusReady),
		EventCancel: terminal(domain.StatusCancelled,
			domain.CancelReasonCapFail, domain.CancelReasonLate),
	},
	domain.StatusReady: {
		EventUserOK: plain(domain.StatusOrderPlaced),
		EventAutoOK: plain(domain.StatusOrderPlaced),
		EventCancel: terminal(domain.StatusCancelled,
			domain.CancelReasonSkip, domain.CancelReasonExpired, domain.CancelReasonNightDisabled),
	},
	domain.StatusOrderPlaced: {
		EventFilled:   plain(domain.StatusSettled),
		EventRejected: plain(domain.StatusError),
	},
}

// Apply validates and computes the next status for (current, event, reason).
// reason is only meaningful (and only checked) when the transition lands on
// CANCELLED; pass domain.CancelReasonNone otherwise. Apply never mutates
// anything — callers persist the result themselves, inside the ledger's
// Transition (see internal/ledger), in the same transaction that writes
// any attached Signal row.
func Apply(current domain.Status, event Event, reason domain.CancelReason) (domain.Status, error) {
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: %s is terminal, rejecting event %s", ErrIllegalTransition, current, event)
	}

	byEvent, ok := table[current]
	if !ok {
		return current, fmt.Errorf("%w: no transitions defined from %s", ErrIllegalTransition, current)
	}

	t, ok := byEvent[event]
	if !ok {
		return current, fmt.Errorf("%w: event %s not legal from %s", ErrIllegalTransition, event, current)
	}

	if t.next == domain.StatusCancelled {
		if !t.allowedReasons[reason] {
			return current, fmt.Errorf("%w: reason %s not legal for %s->CANCELLED via %s",
				ErrIllegalTransition, reason, current, event)
		}
	} else if reason != domain.CancelReasonNone {
		return current, fmt.Errorf("%w: reason %s supplied for non-cancelling transition %s->%s",
			ErrIllegalTransition, reason, current, t.next)
	}

	return t.next, nil
}

// Legal reports whether (status, event, reason) would succeed, without
// returning an error value — convenience for call sites that only need a
// boolean guard (e.g. logging "skip, not legal yet").
func Legal(current domain.Status, event Event, reason domain.CancelReason) bool {
	_, err := Apply(current, event, reason)
	return err == nil
}
