package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ShopStatus represents the lifecycle state of a shop account
type ShopStatus string

const (
	ShopStatusPending   ShopStatus = "pending"
	ShopStatusActive    ShopStatus = "active"
	ShopStatusSuspended ShopStatus = "suspended"
	ShopStatusBlocked   ShopStatus = "blocked"
)

// FeatureFlagCutPercentage is the feature-flag key overriding the shop's cut
const FeatureFlagCutPercentage = "cut_percentage"

// Shop represents a shop account: the authenticated principal that owns
// games, sessions and a wallet. Identity and auth live elsewhere; the core
// only needs the wallet balance and feature flags.
type Shop struct {
	ID            int64           `db:"id"`
	Username      string          `db:"username"`
	Name          string          `db:"name"`
	Status        ShopStatus      `db:"status"`
	WalletBalance decimal.Decimal `db:"wallet_balance"`
	FeatureFlags  map[string]any  `db:"feature_flags"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// IsActive checks if the shop account is active
func (s *Shop) IsActive() bool {
	return s.Status == ShopStatusActive
}

// CutPercentage resolves the shop's cut percentage from its feature flags,
// clamped to [0, 100]. Missing or unparseable flags fall back to the given
// default. Flag values arrive from JSONB so numbers may be float64,
// json.Number or numeric strings.
func (s *Shop) CutPercentage(fallback decimal.Decimal) decimal.Decimal {
	raw, ok := s.FeatureFlags[FeatureFlagCutPercentage]
	if !ok {
		return clampPercentage(fallback)
	}

	var cut decimal.Decimal
	switch v := raw.(type) {
	case float64:
		cut = decimal.NewFromFloat(v)
	case int:
		cut = decimal.NewFromInt(int64(v))
	case int64:
		cut = decimal.NewFromInt(v)
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return clampPercentage(fallback)
		}
		cut = parsed
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return clampPercentage(fallback)
		}
		cut = parsed
	default:
		return clampPercentage(fallback)
	}

	return clampPercentage(cut)
}

func clampPercentage(d decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}
