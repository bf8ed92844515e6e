// Package money provides a type-safe, decimal-backed value object for
// per-asset quantities, adapted from this codebase's chain-aware Amount type
// to a single-exchange world where assets are identified by ticker symbol
// alone (see DESIGN.md for why the chain-ID/contract-address identity was
// dropped).
package money

import "strings"

// Asset identifies a tradeable currency by its exchange ticker symbol.
type Asset string

// NormalizeAsset upper-cases and trims a raw symbol from config or the wire.
func NormalizeAsset(symbol string) Asset {
	return Asset(strings.ToUpper(strings.TrimSpace(symbol)))
}

func (a Asset) String() string { return string(a) }
