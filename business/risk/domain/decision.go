// Package domain holds the Risk Gate's value objects: decisions, levels,
// and the outcome record fed back after every execution attempt.
package domain

import "github.com/shopspring/decimal"

// Level classifies the portfolio's current loss exposure, derived from
// today's realized P&L ratio.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RejectReason names which of the ordered checks failed. Empty on approval.
type RejectReason string

const (
	RejectNone                 RejectReason = ""
	RejectTradingDisabled      RejectReason = "trading_disabled"
	RejectOpportunityExpired   RejectReason = "opportunity_expired"
	RejectTooFrequent          RejectReason = "min_interval_not_elapsed"
	RejectDailyTradeCapReached RejectReason = "daily_trade_cap_reached"
	RejectKillSwitch           RejectReason = "kill_switch_active"
	RejectDailyLossLimit       RejectReason = "daily_loss_limit"
	RejectStakeLimit           RejectReason = "stake_limit_exceeded"
	RejectPositionLimit        RejectReason = "position_limit_exceeded"
	RejectDepthLimit           RejectReason = "depth_limit_exceeded"
	RejectInsufficientBalance  RejectReason = "insufficient_balance"
	RejectStakeBelowMinimum    RejectReason = "stake_below_minimum"
)

// Decision is the Risk Gate's verdict on one opportunity.
type Decision struct {
	Approved bool
	Reason   RejectReason
	Stake    decimal.Decimal // sized stake in the path's start asset; zero if rejected
}

// Rejected builds a rejection Decision.
func Rejected(reason RejectReason) Decision {
	return Decision{Approved: false, Reason: reason}
}

// Approval builds an approved Decision for the given stake.
func Approval(stake decimal.Decimal) Decision {
	return Decision{Approved: true, Stake: stake}
}

// Outcome is what Record learns from after an execution attempt: the
// realized P&L in quote (USDT) terms, positive or negative.
type Outcome struct {
	ProfitUSDT decimal.Decimal
}
