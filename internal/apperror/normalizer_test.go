package apperror

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpErr(status int, body string) error {
	return &apiclient.HTTPError{Method: http.MethodPost, Path: "/sinistres/bamboo", StatusCode: status, Body: []byte(body)}
}

func TestClassify_CoverageWindowInterpolatesLocalizedDates(t *testing.T) {
	body := `{"error":{"code":"DATE_SINISTRE_ANTERIEURE_EFFET","message":"raw","context":{"date_sinistre":"2024-01-05","date_effet":"2024-03-01"}}}`

	fr := New("fr").Classify(httpErr(http.StatusUnprocessableEntity, body))
	assert.Equal(t, KindCoverageWindowViolation, fr.Kind)
	assert.True(t, fr.Kind.IsCoverageWindowViolation())
	assert.Contains(t, fr.Message, "05/01/2024")
	assert.Contains(t, fr.Message, "01/03/2024")
	assert.Equal(t, "DATE_SINISTRE_ANTERIEURE_EFFET", fr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, fr.Status)
	assert.Equal(t, "2024-01-05", fr.Context["date_sinistre"])

	en := New("en").Classify(httpErr(http.StatusUnprocessableEntity, body))
	assert.Contains(t, en.Message, "January 5, 2024")
	assert.Contains(t, en.Message, "March 1, 2024")
}

func TestClassify_BackendCodes(t *testing.T) {
	n := New("fr")
	tests := []struct {
		code string
		ctx  string
		kind Kind
		want string
	}{
		{"DELAI_CARENCE_NON_ECOULE", `{"date_fin_carence":"2024-06-30"}`, KindWaitingPeriodViolation, "30/06/2024"},
		{"DELAI_CARENCE_NON_ECOULE", `{}`, KindWaitingPeriodViolation, "délai de carence"},
		{"CONTRAT_NON_ACTIF", `{"statut":"suspendu"}`, KindContractNotActive, "suspendu"},
		{"CONTRAT_EXPIRE", `{"date_fin":"2023-12-31T00:00:00Z"}`, KindContractExpired, "31/12/2023"},
		{"SINISTRE_NON_MODIFIABLE", `null`, KindClaimNotModifiable, "ne peut plus"},
		{"TRANSITION_STATUT_INVALIDE", `{"transitions_autorisees":["en_cours","rejete"]}`, KindIllegalStatusTransition, "en_cours, rejete"},
		{"QUITTANCE_INTROUVABLE", `{}`, KindInstallmentNotFound, "introuvable"},
		{"QUITTANCE_DEJA_VALIDEE", `{}`, KindInstallmentAlreadyValidated, "validée"},
		{"QUITTANCE_DEJA_PAYEE", `{}`, KindInstallmentAlreadyPaid, "payée"},
		{"PERMISSION_REFUSEE", `{}`, KindPermissionDenied, "droits"},
		{"VALIDATION_ECHOUEE", `{}`, KindValidationFailed, "invalides"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			body := `{"error":{"code":"` + tt.code + `","context":` + tt.ctx + `}}`
			c := n.Classify(httpErr(http.StatusConflict, body))
			assert.Equal(t, tt.kind, c.Kind)
			assert.Contains(t, c.Message, tt.want)
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	n := New("en")
	tests := []struct {
		name string
		err  error
		kind Kind
		want string
	}{
		{
			name: "unknown code falls through to backend message",
			err:  httpErr(http.StatusBadRequest, `{"error":{"code":"SOMETHING_NEW","message":"Plafond dépassé"}}`),
			kind: KindUnclassified,
			want: "Plafond dépassé",
		},
		{
			name: "backend message wins over field errors",
			err:  httpErr(http.StatusUnprocessableEntity, `{"message":"The given data was invalid.","errors":{"montant":["too high"]}}`),
			kind: KindValidationFailed,
			want: "The given data was invalid.",
		},
		{
			name: "first field in insertion order",
			err:  httpErr(http.StatusUnprocessableEntity, `{"errors":{"zone":["zone required"],"age":["age required"]}}`),
			kind: KindValidationFailed,
			want: "zone required",
		},
		{
			name: "bare 403 infers permission denied",
			err:  httpErr(http.StatusForbidden, ``),
			kind: KindPermissionDenied,
			want: "rights",
		},
		{
			name: "403 keeps the backend message",
			err:  httpErr(http.StatusForbidden, `{"message":"Accès réservé"}`),
			kind: KindPermissionDenied,
			want: "Accès réservé",
		},
		{
			name: "transport error surfaces its message",
			err:  &apiclient.TransportError{Method: http.MethodGet, Path: "/emfs", Err: errors.New("connection refused")},
			kind: KindUnclassified,
			want: "connection refused",
		},
		{
			name: "plain runtime error",
			err:  context.DeadlineExceeded,
			kind: KindUnclassified,
			want: "context deadline exceeded",
		},
		{
			name: "empty 500 uses fallback",
			err:  httpErr(http.StatusInternalServerError, `not json`),
			kind: KindUnclassified,
			want: "unexpected error",
		},
		{
			name: "nil error uses fallback",
			err:  nil,
			kind: KindUnclassified,
			want: "unexpected error",
		},
		{
			name: "error with empty text uses fallback",
			err:  errors.New(" "),
			kind: KindUnclassified,
			want: "unexpected error",
		},
		{
			name: "local denial",
			err:  Denied("close_claim"),
			kind: KindPermissionDenied,
			want: "rights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := n.Classify(tt.err)
			assert.Equal(t, tt.kind, c.Kind)
			assert.True(t, c.Kind.Valid())
			assert.NotEmpty(t, c.Message)
			assert.Contains(t, c.Message, tt.want)
		})
	}
}

func TestClassify_FieldErrorsInContext(t *testing.T) {
	c := New("fr").Classify(httpErr(http.StatusUnprocessableEntity, `{"errors":{"nom":["requis","trop court"],"prenom":"requis"}}`))

	require.Equal(t, KindValidationFailed, c.Kind)
	fields, ok := c.Context["fields"].([]FieldError)
	require.True(t, ok)
	assert.Equal(t, []FieldError{
		{Field: "nom", Messages: []string{"requis", "trop court"}},
		{Field: "prenom", Messages: []string{"requis"}},
	}, fields)
}

func TestClassify_LocalDenialCarriesCapability(t *testing.T) {
	err := Denied("close_claim")
	assert.True(t, errdefs.IsPermissionDenied(err))

	c := New("fr").Classify(err)
	assert.Equal(t, "close_claim", c.Context["capability"])
	assert.Zero(t, c.Status)
}

func TestNew_LocaleMatching(t *testing.T) {
	assert.Equal(t, "fr", New("fr").Locale())
	assert.Equal(t, "fr", New("fr-CI").Locale())
	assert.Equal(t, "en", New("en-US").Locale())
	assert.Equal(t, "fr", New("de").Locale())
	assert.Equal(t, "fr", New("???").Locale())
}

func TestKindPredicates(t *testing.T) {
	for _, k := range Kinds() {
		assert.Equal(t, k == KindCoverageWindowViolation, k.IsCoverageWindowViolation(), k)
		assert.Equal(t, k == KindWaitingPeriodViolation, k.IsWaitingPeriodViolation(), k)
		assert.Equal(t, k == KindPermissionDenied, k.IsPermissionViolation(), k)
		assert.Equal(t, k == KindClaimNotModifiable, k.IsNotModifiableViolation(), k)
	}
	assert.False(t, Kind("bogus").Valid())
}

func TestKindForCode_EveryCodeMapsToValidKind(t *testing.T) {
	for code := range backendCodes {
		k, ok := KindForCode(code)
		assert.True(t, ok)
		assert.True(t, k.Valid(), code)
		assert.NotEqual(t, KindUnclassified, k)
	}
	_, ok := KindForCode("")
	assert.False(t, ok)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "05/01/2024", formatDate("02/01/2006", "2024-01-05"))
	assert.Equal(t, "January 5, 2024", formatDate("January 2, 2006", "2024-01-05T10:00:00Z"))
	assert.Equal(t, "demain", formatDate("02/01/2006", "demain"))
}
