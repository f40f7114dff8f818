package models

import "time"

// Event types emitted by the sale engine and registry.
const (
	EventSaleCreated            = "SaleCreated"
	EventTokensPurchased        = "TokensPurchased"
	EventContributionWithdrawn  = "ContributionWithdrawn"
	EventTokensClaimed          = "TokensClaimed"
	EventSaleTokensWithdrawn    = "SaleTokensWithdrawn"
	EventUnsoldTokensWithdrawn  = "UnsoldTokensWithdrawn"
	EventRewardAdded            = "RewardAdded"
	EventDistributionAdded      = "DistributionAdded"
	EventDistributionClaimed    = "DistributionClaimed"
)

// SaleEvent is the payload published to event sinks (log, websocket stream)
// after every committed state transition. Amount is a decimal string in the
// smallest unit of Token.
type SaleEvent struct {
	Type    string    `json:"type"`
	SaleID  string    `json:"sale_id,omitempty"`
	Account string    `json:"account,omitempty"`
	Token   string    `json:"token,omitempty"`
	Amount  string    `json:"amount,omitempty"`
	Time    time.Time `json:"time"`
}

// EventSink receives committed events. Implementations must not block the
// caller for long; the engine emits while holding its state lock.
type EventSink interface {
	Emit(event SaleEvent)
}
