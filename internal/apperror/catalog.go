package apperror

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Keys with a "detail" suffix take context arguments.
const (
	msgCoverageWindow          = "claim.coverage_window"
	msgCoverageWindowDetail    = "claim.coverage_window.detail"
	msgWaitingPeriod           = "claim.waiting_period"
	msgWaitingPeriodDetail     = "claim.waiting_period.detail"
	msgContractNotActive       = "contract.not_active"
	msgContractNotActiveDetail = "contract.not_active.detail"
	msgContractExpired         = "contract.expired"
	msgContractExpiredDetail   = "contract.expired.detail"
	msgClaimNotModifiable      = "claim.not_modifiable"
	msgTransition              = "claim.illegal_transition"
	msgTransitionDetail        = "claim.illegal_transition.detail"
	msgInstallmentNotFound     = "installment.not_found"
	msgInstallmentValidated    = "installment.already_validated"
	msgInstallmentPaid         = "installment.already_paid"
	msgPermissionDenied        = "permission.denied"
	msgValidationFailed        = "validation.failed"
	msgUnexpected              = "error.unexpected"
)

var translations = map[language.Tag]map[string]string{
	language.French: {
		msgCoverageWindow:          "La date du sinistre est antérieure à la date d'effet du contrat.",
		msgCoverageWindowDetail:    "La date du sinistre (%s) est antérieure à la date d'effet du contrat (%s).",
		msgWaitingPeriod:           "Le délai de carence de ce contrat n'est pas encore écoulé.",
		msgWaitingPeriodDetail:     "Le délai de carence n'est pas écoulé : déclaration possible à partir du %s.",
		msgContractNotActive:       "Le contrat n'est pas actif.",
		msgContractNotActiveDetail: "Le contrat n'est pas actif (statut : %s).",
		msgContractExpired:         "Le contrat a expiré.",
		msgContractExpiredDetail:   "Le contrat a expiré le %s.",
		msgClaimNotModifiable:      "Ce sinistre ne peut plus être modifié.",
		msgTransition:              "Cette transition de statut n'est pas autorisée.",
		msgTransitionDetail:        "Cette transition de statut n'est pas autorisée. Statuts possibles : %s.",
		msgInstallmentNotFound:     "Quittance introuvable.",
		msgInstallmentValidated:    "Cette quittance a déjà été validée.",
		msgInstallmentPaid:         "Cette quittance a déjà été payée.",
		msgPermissionDenied:        "Vous n'avez pas les droits nécessaires pour effectuer cette action.",
		msgValidationFailed:        "Les données saisies sont invalides.",
		msgUnexpected:              "Une erreur inattendue est survenue, veuillez réessayer.",
	},
	language.English: {
		msgCoverageWindow:          "The claim date is earlier than the contract's effective date.",
		msgCoverageWindowDetail:    "The claim date (%s) is earlier than the contract's effective date (%s).",
		msgWaitingPeriod:           "The waiting period of this contract has not elapsed yet.",
		msgWaitingPeriodDetail:     "The waiting period has not elapsed: a claim can be filed from %s.",
		msgContractNotActive:       "The contract is not active.",
		msgContractNotActiveDetail: "The contract is not active (status: %s).",
		msgContractExpired:         "The contract has expired.",
		msgContractExpiredDetail:   "The contract expired on %s.",
		msgClaimNotModifiable:      "This claim can no longer be modified.",
		msgTransition:              "This status change is not allowed.",
		msgTransitionDetail:        "This status change is not allowed. Possible statuses: %s.",
		msgInstallmentNotFound:     "Installment not found.",
		msgInstallmentValidated:    "This installment has already been validated.",
		msgInstallmentPaid:         "This installment has already been paid.",
		msgPermissionDenied:        "You do not have the rights required for this action.",
		msgValidationFailed:        "The submitted data is invalid.",
		msgUnexpected:              "An unexpected error occurred, please retry.",
	},
}

var dateLayouts = map[language.Tag]string{
	language.French:  "02/01/2006",
	language.English: "January 2, 2006",
}

var supported = []language.Tag{language.French, language.English}

var matcher = language.NewMatcher(supported)

var messages = mustBuildCatalog()

func mustBuildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.French))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("apperror: register %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// matchLocale resolves locale to a supported tag, French when nothing matches.
func matchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.French
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.French
	}
	return supported[idx]
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// formatDate renders backend dates (YYYY-MM-DD or RFC 3339) in the locale layout.
// Anything else is returned as sent.
func formatDate(layout, value string) string {
	for _, in := range []string{time.DateOnly, time.RFC3339, time.DateTime} {
		if t, err := time.Parse(in, value); err == nil {
			return t.Format(layout)
		}
	}
	return value
}
