package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/models"
)

// EntitlementSource answers what a shop's billing state allows.
type EntitlementSource interface {
	Entitlement(ctx context.Context, shopID uuid.UUID) (models.Entitlement, error)
}

// BillingStore reads subscription state.
type BillingStore interface {
	GetBillingStatus(ctx context.Context, shopID uuid.UUID) (string, error)
}

var _ domain.EntitlementService = (*BillingEntitlements)(nil)

// BillingEntitlements derives entitlements from the billing table.
type BillingEntitlements struct {
	billing BillingStore
	log     *logrus.Logger
}

// NewBillingEntitlements creates a BillingEntitlements.
func NewBillingEntitlements(billing BillingStore, log *logrus.Logger) *BillingEntitlements {
	return &BillingEntitlements{billing: billing, log: log}
}

// Entitlement returns the shop's gates. A shop with no billing row, or one
// whose billing lookup fails, gets none.
func (e *BillingEntitlements) Entitlement(ctx context.Context, shopID uuid.UUID) (models.Entitlement, error) {
	status, err := e.billing.GetBillingStatus(ctx, shopID)
	if errors.Is(err, models.ErrShopNotFound) {
		return models.Entitlement{}, nil
	}

	if err != nil {
		e.log.WithError(err).WithField("shop_id", shopID).Warn("billing lookup failed, denying entitlement")
		return models.Entitlement{}, nil
	}

	return models.EntitlementFor(status), nil
}
