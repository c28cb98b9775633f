package ports

import (
	"context"

	"github.com/alejandrodnm/martin/internal/domain"
)

// UserDecisionKind is the user's response to an approval card.
type UserDecisionKind string

const (
	UserDecisionOK   UserDecisionKind = "OK"
	UserDecisionSkip UserDecisionKind = "SKIP"
)

// UserDecision is one message off the decision stream.
type UserDecision struct {
	TradeID int64
	Kind    UserDecisionKind
	UserID  string
}

// Notifier delivers approval cards and receives user decisions. It is
// external to this spec (§1) — only the interface is defined here.
type Notifier interface {
	EmitApproval(ctx context.Context, trade domain.Trade, window domain.MarketWindow, signal domain.Signal) error
	SubscribeDecisions(ctx context.Context) (<-chan UserDecision, error)
}
