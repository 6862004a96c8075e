package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CollateralStatus is the state of a collateral link.
type CollateralStatus string

const (
	CollateralActive     CollateralStatus = "ACTIVE"
	CollateralReleased   CollateralStatus = "RELEASED"
	CollateralForeclosed CollateralStatus = "FORECLOSED"
	CollateralReplaced   CollateralStatus = "REPLACED"
)

// ParseCollateralStatus validates a raw status value.
func ParseCollateralStatus(s string) (CollateralStatus, error) {
	switch CollateralStatus(s) {
	case CollateralActive, CollateralReleased, CollateralForeclosed, CollateralReplaced:
		return CollateralStatus(s), nil
	default:
		return "", fmt.Errorf("unknown collateral status %q", s)
	}
}

// CollateralLink pledges an external asset against a deal.
type CollateralLink struct {
	LinkID            string           `json:"linkID"`
	DealID            string           `json:"dealID"`
	AssetID           string           `json:"assetID"`
	Status            CollateralStatus `json:"status"`
	ValuationAtPledge decimal.Decimal  `json:"valuationAtPledge"`
	LTVAtPledge       decimal.Decimal  `json:"ltvAtPledge"`
	PledgedUnits      decimal.Decimal  `json:"pledgedUnits"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           *time.Time       `json:"endDate,omitempty"`
	LastLTV           *decimal.Decimal `json:"lastLTV,omitempty"`
	LastEvaluatedAt   *time.Time       `json:"lastEvaluatedAt,omitempty"`
	Version           int64            `json:"version"`
	AuditFields
}

// CollateralChainEvent records one substitution of a pledged asset. Append-only.
type CollateralChainEvent struct {
	EventID    string    `json:"eventID"`
	DealID     string    `json:"dealID"`
	OldLinkID  string    `json:"oldLinkID"`
	NewLinkID  string    `json:"newLinkID"`
	OldAssetID string    `json:"oldAssetID"`
	NewAssetID string    `json:"newAssetID"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorID"`
}

// AssetValuation is the current value of an external asset.
type AssetValuation struct {
	AssetID      string          `json:"assetID"`
	Name         string          `json:"name"`
	Valuation    decimal.Decimal `json:"valuation"`
	CurrencyCode string          `json:"currencyCode"`
	ValuedAt     time.Time       `json:"valuedAt"`
}
