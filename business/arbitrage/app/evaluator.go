// Package app contains the Arbitrage Evaluator: a pure function over the
// Order-Book Cache and a configured set of paths.
package app

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// FeeTable looks up the fee rate to apply to a leg's output, with a
// per-pair override and a global fallback.
type FeeTable func(pair marketdomain.Pair) decimal.Decimal

// Params bundles the evaluator's tunables, all sourced from configuration.
type Params struct {
	FreshnessBudget        time.Duration
	MinProfitThreshold     decimal.Decimal
	MinTradeAmount         decimal.Decimal
	MaxProfitRateThreshold decimal.Decimal // 0 means "no sanity filter"
	Fees                   FeeTable
}

// stakeSearchSteps bounds the binary search for max stake; each step halves
// the remaining uncertainty, so 40 steps resolves to well under a satoshi
// at any realistic scale.
const stakeSearchSteps = 40

// Evaluate computes, for each path, the realizable net profit rate and
// maximum stake against the current cache, returning opportunities ordered
// by profit rate descending. Pure: the same cache contents and params
// always produce the same output list in the same order.
func Evaluate(paths []domain.Path, cache marketapp.OrderBookCache, params Params, now time.Time) []domain.Opportunity {
	var out []domain.Opportunity

	for _, path := range paths {
		books, ok := fetchFreshBooks(path, cache, params.FreshnessBudget, now)
		if !ok {
			continue
		}

		profitRate, ok := simulate(path, decimal.NewFromInt(1), books, params.Fees)
		if !ok {
			continue
		}
		if profitRate.LessThan(params.MinProfitThreshold) {
			continue
		}
		if !params.MaxProfitRateThreshold.IsZero() && profitRate.GreaterThan(params.MaxProfitRateThreshold) {
			continue
		}

		maxStake, ok := maxStakeFor(path, books, params.Fees)
		if !ok || maxStake.LessThan(params.MinTradeAmount) {
			continue
		}

		out = append(out, domain.Opportunity{
			Path:        path,
			ProfitRate:  profitRate,
			MaxStake:    maxStake,
			EvaluatedAt: now,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitRate.GreaterThan(out[j].ProfitRate)
	})
	return out
}

// fetchFreshBooks reads every leg's book, enforcing the freshness budget and
// the freshness-coherence rule (oldest leg within budget of the newest).
func fetchFreshBooks(path domain.Path, cache marketapp.OrderBookCache, budget time.Duration, now time.Time) ([]marketdomain.OrderBook, bool) {
	books := make([]marketdomain.OrderBook, len(path.Steps))
	var oldest, newest time.Time

	for i, step := range path.Steps {
		book, status := cache.Fetch(step.Pair, budget)
		if status != marketapp.FetchOK {
			return nil, false
		}
		if book.Crossed {
			return nil, false
		}
		books[i] = book
		if i == 0 || book.Timestamp.Before(oldest) {
			oldest = book.Timestamp
		}
		if i == 0 || book.Timestamp.After(newest) {
			newest = book.Timestamp
		}
	}
	if newest.Sub(oldest) > budget {
		return nil, false
	}
	return books, true
}

// simulate walks the path with starting stake x0, returning the profit
// rate x_n/x0 - 1. Returns ok=false if any leg cannot consume the full
// input (book exhausted).
func simulate(path domain.Path, x0 decimal.Decimal, books []marketdomain.OrderBook, fees FeeTable) (decimal.Decimal, bool) {
	input := money.New(path.StartAsset(), x0)
	for i, step := range path.Steps {
		output, consumed := walkLeg(step, input, books[i], fees)
		if !consumed {
			return decimal.Zero, false
		}
		input = output
	}
	// The path closes its cycle, so input is back in StartAsset terms here
	// and dividing by the original stake is a same-asset ratio.
	return input.Decimal().Div(x0).Sub(decimal.NewFromInt(1)), true
}

// walkLeg consumes `input` of the leg's input asset against the book,
// returning the output in the leg's output asset, and whether the book had
// enough depth to fully consume the input. input and the book levels it is
// matched against are always the same asset by construction, so every
// Amount operation below is structurally safe.
func walkLeg(step domain.PathStep, input money.Amount, book marketdomain.OrderBook, fees FeeTable) (money.Amount, bool) {
	fee := fees(step.Pair)
	remaining := input
	output := money.Zero(step.OutputAsset())

	var levels []marketdomain.Level
	if step.Action == domain.Buy {
		levels = book.Asks // consume quote, buying base
	} else {
		levels = book.Bids // consume base, selling for quote
	}

	for _, level := range levels {
		if remaining.Decimal().LessThanOrEqual(decimal.Zero) {
			break
		}
		var depthInInput, outAtLevel decimal.Decimal
		if step.Action == domain.Buy {
			depthInInput = level.Size.Mul(level.Price) // quote needed to buy this level's base
		} else {
			depthInInput = level.Size // base available to sell at this level
		}

		take := depthInInput
		if remaining.Decimal().LessThan(take) {
			take = remaining.Decimal()
		}

		if step.Action == domain.Buy {
			outAtLevel = take.Div(level.Price) // base received
		} else {
			outAtLevel = take.Mul(level.Price) // quote received
		}

		sum, err := output.Add(money.New(step.OutputAsset(), outAtLevel))
		if err != nil {
			panic(err)
		}
		output = sum

		// take is capped at remaining.Decimal() above, so this never goes
		// negative.
		diff, err := remaining.Sub(money.New(step.InputAsset(), take))
		if err != nil {
			panic(err)
		}
		remaining = diff
	}

	if remaining.IsPositive() {
		return money.Amount{}, false // book exhausted before consuming full input
	}

	net := decimal.NewFromInt(1).Sub(fee)
	return money.New(step.OutputAsset(), output.Decimal().Mul(net)), true
}

// maxStakeFor finds the largest x0 such that no leg exhausts its side of
// the book, via binary search over simulate's "ok" flag — it is monotone:
// any x0 that succeeds implies every smaller x0 also succeeds.
func maxStakeFor(path domain.Path, books []marketdomain.OrderBook, fees FeeTable) (decimal.Decimal, bool) {
	lo := decimal.Zero
	hi := totalInputDepth(path.Steps[0], books[0])
	if hi.IsZero() {
		return decimal.Zero, false
	}

	// The book's own first-leg depth is a safe upper bound, since later legs
	// can only be depth-constrained further by the chain, never freed up. If
	// the whole first-leg depth clears every leg, it is the answer.
	if _, ok := simulate(path, hi, books, fees); ok {
		return hi, true
	}

	for i := 0; i < stakeSearchSteps; i++ {
		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		if _, ok := simulate(path, mid, books, fees); ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo.IsZero() {
		return decimal.Zero, false
	}
	return lo, true
}

// totalInputDepth sums the first leg's book depth expressed in the leg's
// input asset, an upper bound for the binary search.
func totalInputDepth(step domain.PathStep, book marketdomain.OrderBook) decimal.Decimal {
	total := decimal.Zero
	var levels []marketdomain.Level
	if step.Action == domain.Buy {
		levels = book.Asks
	} else {
		levels = book.Bids
	}
	for _, level := range levels {
		if step.Action == domain.Buy {
			total = total.Add(level.Size.Mul(level.Price))
		} else {
			total = total.Add(level.Size)
		}
	}
	return total
}
