// Package apperror turns failures of the backend, the transport or local
// authorization checks into one classified, localized message.
package apperror

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// Kind is the closed set of failure classes shown to the user.
type Kind string

const (
	KindCoverageWindowViolation     Kind = "coverage_window_violation"
	KindWaitingPeriodViolation      Kind = "waiting_period_violation"
	KindContractNotActive           Kind = "contract_not_active"
	KindContractExpired             Kind = "contract_expired"
	KindClaimNotModifiable          Kind = "claim_not_modifiable"
	KindIllegalStatusTransition     Kind = "illegal_status_transition"
	KindInstallmentNotFound         Kind = "installment_not_found"
	KindInstallmentAlreadyValidated Kind = "installment_already_validated"
	KindInstallmentAlreadyPaid      Kind = "installment_already_paid"
	KindPermissionDenied            Kind = "permission_denied"
	KindValidationFailed            Kind = "validation_failed"
	KindUnclassified                Kind = "unclassified"
)

var kinds = []Kind{
	KindCoverageWindowViolation,
	KindWaitingPeriodViolation,
	KindContractNotActive,
	KindContractExpired,
	KindClaimNotModifiable,
	KindIllegalStatusTransition,
	KindInstallmentNotFound,
	KindInstallmentAlreadyValidated,
	KindInstallmentAlreadyPaid,
	KindPermissionDenied,
	KindValidationFailed,
	KindUnclassified,
}

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

func (k Kind) Valid() bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func (k Kind) IsCoverageWindowViolation() bool { return k == KindCoverageWindowViolation }

func (k Kind) IsWaitingPeriodViolation() bool { return k == KindWaitingPeriodViolation }

func (k Kind) IsPermissionViolation() bool { return k == KindPermissionDenied }

func (k Kind) IsNotModifiableViolation() bool { return k == KindClaimNotModifiable }

// backendCodes maps the codes sent in {"error": {"code": ...}} bodies.
var backendCodes = map[string]Kind{
	"DATE_SINISTRE_ANTERIEURE_EFFET": KindCoverageWindowViolation,
	"DELAI_CARENCE_NON_ECOULE":       KindWaitingPeriodViolation,
	"CONTRAT_NON_ACTIF":              KindContractNotActive,
	"CONTRAT_EXPIRE":                 KindContractExpired,
	"SINISTRE_NON_MODIFIABLE":        KindClaimNotModifiable,
	"TRANSITION_STATUT_INVALIDE":     KindIllegalStatusTransition,
	"QUITTANCE_INTROUVABLE":          KindInstallmentNotFound,
	"QUITTANCE_DEJA_VALIDEE":         KindInstallmentAlreadyValidated,
	"QUITTANCE_DEJA_PAYEE":           KindInstallmentAlreadyPaid,
	"PERMISSION_REFUSEE":             KindPermissionDenied,
	"VALIDATION_ECHOUEE":             KindValidationFailed,
}

// KindForCode returns the kind of a backend code, if the code is known.
func KindForCode(code string) (Kind, bool) {
	k, ok := backendCodes[code]
	return k, ok
}

// DeniedError is a local authorization refusal, raised before any network call.
type DeniedError struct {
	Capability string
}

// Denied refuses an operation requiring capability.
func Denied(capability string) error {
	return &DeniedError{Capability: capability}
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Capability)
}

func (e *DeniedError) Unwrap() error {
	return errdefs.ErrPermissionDenied
}
