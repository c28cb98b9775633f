package statemachine_test

import (
	"testing"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_HappyPathDay(t *testing.T) {
	status := domain.StatusNew

	status, err := statemachine.Apply(status, statemachine.EventStartSearch, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSearchingSignal, status)

	status, err = statemachine.Apply(status, statemachine.EventQualifyingSignal, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSignalled, status)

	status, err = statemachine.Apply(status, statemachine.EventConfirmReached, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingConfirm, status)

	status, err = statemachine.Apply(status, statemachine.EventConfirmReached, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingCap, status)

	status, err = statemachine.Apply(status, statemachine.EventCapPass, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, status)

	status, err = statemachine.Apply(status, statemachine.EventUserOK, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, status)

	status, err = statemachine.Apply(status, statemachine.EventFilled, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSettled, status)
}

func TestApply_LateConfirmCancelsWithLate(t *testing.T) {
	status, err := statemachine.Apply(domain.StatusSignalled, statemachine.EventCancel, domain.CancelReasonLate)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, status)
}

func TestApply_NightAutoOK(t *testing.T) {
	status, err := statemachine.Apply(domain.StatusReady, statemachine.EventAutoOK, domain.CancelReasonNone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderPlaced, status)
}

func TestApply_RejectsReasonMismatch(t *testing.T) {
	// CAP_FAIL is only legal out of WAITING_CAP, not SIGNALLED.
	_, err := statemachine.Apply(domain.StatusSignalled, statemachine.EventCancel, domain.CancelReasonCapFail)
	assert.ErrorIs(t, err, statemachine.ErrIllegalTransition)
}

func TestApply_RejectsEventNotInTable(t *testing.T) {
	_, err := statemachine.Apply(domain.StatusSearchingSignal, statemachine.EventCapPass, domain.CancelReasonNone)
	assert.ErrorIs(t, err, statemachine.ErrIllegalTransition)
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusSettled, domain.StatusCancelled, domain.StatusError} {
		_, err := statemachine.Apply(s, statemachine.EventStartSearch, domain.CancelReasonNone)
		assert.ErrorIsf(t, err, statemachine.ErrIllegalTransition, "status %s should reject all events", s)
	}
}

func TestApply_StayIsNotATransition(t *testing.T) {
	// Non-qualifying signal / none: the orchestrator simply does not call
	// Apply and the trade remains SEARCHING_SIGNAL. There is no event for
	// "stay" in the table: no legal event maps SEARCHING_SIGNAL onto itself.
	events := []statemachine.Event{
		statemachine.EventStartSearch, statemachine.EventQualifyingSignal,
		statemachine.EventConfirmReached, statemachine.EventCapPass,
		statemachine.EventUserOK, statemachine.EventAutoOK,
		statemachine.EventFilled, statemachine.EventRejected,
		statemachine.EventCancel,
	}
	for _, e := range events {
		for _, r := range []domain.CancelReason{domain.CancelReasonNone, domain.CancelReasonNoSignal} {
			next, err := statemachine.Apply(domain.StatusSearchingSignal, e, r)
			if err == nil {
				assert.NotEqualf(t, domain.StatusSearchingSignal, next, "event %s reason %q", e, r)
			}
		}
	}
}

func TestApply_Idempotence_NoMutationOnFailure(t *testing.T) {
	before := domain.StatusSettled
	after, err := statemachine.Apply(before, statemachine.EventFilled, domain.CancelReasonNone)
	assert.Error(t, err)
	assert.Equal(t, before, after)
}
