package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a storefront installation.
type Shop struct {
	ID             uuid.UUID  `json:"id"`
	Domain         string     `json:"domain"`
	CacheVersion   int64      `json:"cache_version"`
	LastAnalysedAt *time.Time `json:"last_analysed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ShopCredentials is what the catalog client needs to reach a shop's admin API.
type ShopCredentials struct {
	ShopID      uuid.UUID
	Domain      string
	AccessToken string
}

// Entitlement is the billing gate for a shop.
type Entitlement struct {
	CanRunJobs       bool `json:"can_run_jobs"`
	CanRenderButtons bool `json:"can_render_buttons"`
}

// BillingActive is the subscription status that opens both gates.
const BillingActive = "active"

// EntitlementFor derives the gates from a billing status.
func EntitlementFor(status string) Entitlement {
	active := status == BillingActive

	return Entitlement{CanRunJobs: active, CanRenderButtons: active}
}
