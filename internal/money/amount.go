package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common errors, named the same way internal/asset.Amount names them so the
// failure modes read identically across both value objects.
var (
	ErrAssetMismatch  = errors.New("money: cannot operate on different assets")
	ErrNegativeAmount = errors.New("money: negative amount")
	ErrNegativeResult = errors.New("money: operation would result in negative amount")
)

// Amount is an immutable Value Object pairing a decimal quantity with the
// asset it is denominated in. Same-asset-only arithmetic catches a whole
// class of unit-confusion bugs (e.g. adding a BTC amount to a USDT amount) at
// the call site instead of at settlement.
type Amount struct {
	asset Asset
	value decimal.Decimal
}

// New creates an Amount. Panics on a negative value: quantities in this
// domain (balances, stakes, fills) are never meaningfully negative — a
// negative P&L is represented separately as a plain decimal, not an Amount.
func New(asset Asset, value decimal.Decimal) Amount {
	if value.IsNegative() {
		panic(ErrNegativeAmount)
	}
	return Amount{asset: asset, value: value}
}

// Zero returns a zero Amount for asset.
func Zero(asset Asset) Amount {
	return Amount{asset: asset, value: decimal.Zero}
}

func (a Amount) Asset() Asset           { return a.asset }
func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) IsZero() bool           { return a.value.IsZero() }
func (a Amount) IsPositive() bool       { return a.value.IsPositive() }

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset != b.asset {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset, b.asset)
	}
	return nil
}

// Add adds two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return Amount{asset: a.asset, value: a.value.Add(b.value)}, nil
}

// Sub subtracts b from a; errors if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	result := a.value.Sub(b.value)
	if result.IsNegative() {
		return Amount{}, ErrNegativeResult
	}
	return Amount{asset: a.asset, value: result}, nil
}

// Cmp compares two amounts of the same asset: -1, 0, 1.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.value.Cmp(b.value), nil
}

// GreaterThanOrEqual returns true if a >= b (same asset required).
func (a Amount) GreaterThanOrEqual(b Amount) (bool, error) {
	cmp, err := a.Cmp(b)
	return cmp >= 0, err
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.value.String(), a.asset)
}
