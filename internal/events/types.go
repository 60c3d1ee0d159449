// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EventType names a ledger state change.
type EventType string

const (
	// Presale events
	PresaleInitialized     EventType = "presale.initialized"
	ContributionAccepted   EventType = "contribution.accepted"
	TokensClaimed          EventType = "tokens.claimed"
	RefundProcessed        EventType = "refund.processed"
	PresalePaused          EventType = "presale.paused"
	PresaleClosed          EventType = "presale.closed"
	PresaleParamsUpdated   EventType = "presale.params_updated"
	PresaleOverrideUpdated EventType = "presale.override_updated"
	AirdropDistributed     EventType = "airdrop.distributed"

	// Staking events
	PoolInitialized    EventType = "pool.initialized"
	StakeDeposited     EventType = "stake.deposited"
	StakeWithdrawn     EventType = "stake.withdrawn"
	RewardsClaimed     EventType = "rewards.claimed"
	RewardsRateUpdated EventType = "rewards.rate_updated"
	RewardsFunded      EventType = "rewards.funded"
)

// AllTypes lists every event type the service emits.
var AllTypes = []EventType{
	PresaleInitialized, ContributionAccepted, TokensClaimed, RefundProcessed,
	PresalePaused, PresaleClosed, PresaleParamsUpdated, PresaleOverrideUpdated,
	AirdropDistributed,
	PoolInitialized, StakeDeposited, StakeWithdrawn, RewardsClaimed,
	RewardsRateUpdated, RewardsFunded,
}

// Event is the base interface for all events.
type Event interface {
	ID() string
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"id"`
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

// NewBase stamps a new event of typ.
func NewBase(typ EventType, at time.Time) BaseEvent {
	return BaseEvent{EventID: uuid.NewString(), EventType: typ, EventTime: at.UTC()}
}

func (e BaseEvent) ID() string           { return e.EventID }
func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// PresaleEvent covers the lifecycle events of a presale: initialized, paused,
// closed, params_updated and override_updated.
type PresaleEvent struct {
	BaseEvent
	Presale solana.PublicKey `json:"presale"`
	Admin   solana.PublicKey `json:"admin"`
	Mint    solana.PublicKey `json:"mint"`
	Paused  bool             `json:"paused,omitempty"`
	Closed  bool             `json:"closed,omitempty"`
	// Override is the manual price in micro-USD, set on override updates.
	Override uint64 `json:"override,omitempty"`
}

type ContributionEvent struct {
	BaseEvent
	Presale     solana.PublicKey `json:"presale"`
	Contributor solana.PublicKey `json:"contributor"`
	Requested   uint64           `json:"requested"`
	Accepted    uint64           `json:"accepted"`
	Tokens      uint64           `json:"tokens"`
	UnitPrice   uint64           `json:"unit_price"`
	Clipped     bool             `json:"clipped"`
}

type ClaimEvent struct {
	BaseEvent
	Presale     solana.PublicKey `json:"presale"`
	Contributor solana.PublicKey `json:"contributor"`
	Amount      uint64           `json:"amount"`
	Claimed     uint64           `json:"claimed"`
}

type RefundEvent struct {
	BaseEvent
	Presale     solana.PublicKey `json:"presale"`
	Contributor solana.PublicKey `json:"contributor"`
	Tokens      uint64           `json:"tokens"`
	Value       uint64           `json:"value"`
}

// AirdropEvent summarises one distribution batch.
type AirdropEvent struct {
	BaseEvent
	Presale    solana.PublicKey `json:"presale"`
	Recipients int              `json:"recipients"`
	Total      uint64           `json:"total"`
}

// PoolEvent covers pool creation, rate changes and funding.
type PoolEvent struct {
	BaseEvent
	Pool       solana.PublicKey `json:"pool"`
	Admin      solana.PublicKey `json:"admin"`
	StakeMint  solana.PublicKey `json:"stake_mint"`
	RewardMint solana.PublicKey `json:"reward_mint"`
	RewardRate uint64           `json:"reward_rate"`
	Funded     uint64           `json:"funded,omitempty"`
}

// StakeEvent covers deposits, withdrawals and reward claims.
type StakeEvent struct {
	BaseEvent
	Pool    solana.PublicKey `json:"pool"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
	Rewards uint64           `json:"rewards"`
	Staked  uint64           `json:"staked"`
}
