package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/pkg/logger"
)

// The functions below keep denormalized fields consistent across institutions,
// licenses and payments. They must be handed transaction-scoped repositories so
// the mirror write commits together with the originating write.

// mirrorLicense copies the license type and expiry onto its institution.
func mirrorLicense(ctx context.Context, institutions repository.InstitutionRepository, license *model.License, at time.Time) error {
	expiry := license.ExpiryDate
	if err := institutions.UpdateLicenseSummary(ctx, license.InstitutionID, license.Type, &expiry, at); err != nil {
		return notFoundOr(err, ErrInstitutionNotFound)
	}

	logger.Debug("License mirrored onto institution", map[string]interface{}{
		"license_id":     license.ID,
		"institution_id": license.InstitutionID,
		"license_type":   license.Type,
		"license_expiry": expiry,
	})
	return nil
}

// attachPayment stamps the funding payment onto its license. Last write wins.
func attachPayment(ctx context.Context, licenses repository.LicenseRepository, payment *model.Payment, at time.Time) error {
	if payment.LicenseID == nil {
		return nil
	}
	if err := licenses.UpdatePaymentID(ctx, *payment.LicenseID, payment.ID, at); err != nil {
		return notFoundOr(err, fmt.Errorf("%w: license %q does not exist", ErrValidation, *payment.LicenseID))
	}

	logger.Debug("Payment attached to license", map[string]interface{}{
		"payment_id": payment.ID,
		"license_id": *payment.LicenseID,
	})
	return nil
}
