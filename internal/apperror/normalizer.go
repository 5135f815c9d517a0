package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/bassista/go_microassur/internal/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Classified is the user-facing form of one failure. Message is never empty.
type Classified struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
	// Code is the backend code when one was sent; Status the HTTP status, 0 without response.
	Code   string `json:"code,omitempty"`
	Status int    `json:"status,omitempty"`
}

// Normalizer classifies errors for one locale.
type Normalizer struct {
	tag        language.Tag
	printer    *message.Printer
	dateLayout string
}

// New returns a normalizer for locale ("fr", "en", "fr-CI", ...). Unsupported
// locales fall back to French.
func New(locale string) *Normalizer {
	tag := matchLocale(locale)
	return &Normalizer{
		tag:        tag,
		printer:    newPrinter(tag),
		dateLayout: dateLayouts[tag],
	}
}

// Locale is the resolved locale tag.
func (n *Normalizer) Locale() string {
	return n.tag.String()
}

// Classify maps any error, nil included, to exactly one kind and message.
// A recognized backend code wins, then the backend message, then the first
// field error, then the error's own text, then a fixed fallback.
func (n *Normalizer) Classify(err error) Classified {
	if err == nil {
		return n.fallback(0)
	}

	var denied *DeniedError
	if errors.As(err, &denied) {
		return Classified{
			Kind:    KindPermissionDenied,
			Message: n.printer.Sprintf(msgPermissionDenied),
			Context: map[string]any{"capability": denied.Capability},
		}
	}

	httpErr, ok := apiclient.AsHTTPError(err)
	if !ok {
		// Transport and runtime failures never reached the backend.
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			return n.fallback(0)
		}
		return Classified{Kind: KindUnclassified, Message: msg}
	}

	c := n.classifyResponse(httpErr.StatusCode, parsePayload(httpErr.Body))
	logger.WithComponent("apperror").Debugf("%s %s (%d) classified as %s", httpErr.Method, httpErr.Path, httpErr.StatusCode, c.Kind)
	return c
}

// Message is Classify(err).Message.
func (n *Normalizer) Message(err error) string {
	return n.Classify(err).Message
}

func (n *Normalizer) classifyResponse(status int, p payload) Classified {
	if kind, ok := KindForCode(p.Code); ok {
		c := Classified{
			Kind:    kind,
			Message: n.template(kind, p.Context),
			Context: p.Context,
			Code:    p.Code,
			Status:  status,
		}
		if kind == KindValidationFailed && len(p.FieldErrors) > 0 {
			c.Context = withFields(p.Context, p.FieldErrors)
		}
		return c
	}

	kind := inferKind(status, p)
	c := Classified{Kind: kind, Code: p.Code, Status: status, Context: p.Context}
	if len(p.FieldErrors) > 0 {
		c.Context = withFields(p.Context, p.FieldErrors)
	}

	switch {
	case p.Message != "":
		c.Message = p.Message
	case len(p.FieldErrors) > 0:
		c.Message = p.FieldErrors[0].Messages[0]
	case kind == KindPermissionDenied:
		c.Message = n.printer.Sprintf(msgPermissionDenied)
	default:
		f := n.fallback(status)
		f.Code, f.Context = p.Code, c.Context
		return f
	}
	return c
}

func inferKind(status int, p payload) Kind {
	switch {
	case status == http.StatusForbidden:
		return KindPermissionDenied
	case len(p.FieldErrors) > 0:
		return KindValidationFailed
	default:
		return KindUnclassified
	}
}

func (n *Normalizer) fallback(status int) Classified {
	return Classified{
		Kind:    KindUnclassified,
		Message: n.printer.Sprintf(msgUnexpected),
		Status:  status,
	}
}

// template renders the message of a coded kind, interpolating context when the
// fields it needs are present.
func (n *Normalizer) template(kind Kind, ctx map[string]any) string {
	p := n.printer
	switch kind {
	case KindCoverageWindowViolation:
		event := n.date(ctx, "date_sinistre", "date_survenance", "event_date")
		inception := n.date(ctx, "date_effet", "date_debut", "inception_date")
		if event != "" && inception != "" {
			return p.Sprintf(msgCoverageWindowDetail, event, inception)
		}
		return p.Sprintf(msgCoverageWindow)
	case KindWaitingPeriodViolation:
		if from := n.date(ctx, "date_fin_carence", "date_eligibilite", "eligible_from"); from != "" {
			return p.Sprintf(msgWaitingPeriodDetail, from)
		}
		return p.Sprintf(msgWaitingPeriod)
	case KindContractNotActive:
		if status := text(ctx, "statut", "status"); status != "" {
			return p.Sprintf(msgContractNotActiveDetail, status)
		}
		return p.Sprintf(msgContractNotActive)
	case KindContractExpired:
		if end := n.date(ctx, "date_fin", "date_expiration", "end_date"); end != "" {
			return p.Sprintf(msgContractExpiredDetail, end)
		}
		return p.Sprintf(msgContractExpired)
	case KindClaimNotModifiable:
		return p.Sprintf(msgClaimNotModifiable)
	case KindIllegalStatusTransition:
		if allowed := list(ctx, "transitions_autorisees", "statuts_autorises", "allowed"); allowed != "" {
			return p.Sprintf(msgTransitionDetail, allowed)
		}
		return p.Sprintf(msgTransition)
	case KindInstallmentNotFound:
		return p.Sprintf(msgInstallmentNotFound)
	case KindInstallmentAlreadyValidated:
		return p.Sprintf(msgInstallmentValidated)
	case KindInstallmentAlreadyPaid:
		return p.Sprintf(msgInstallmentPaid)
	case KindPermissionDenied:
		return p.Sprintf(msgPermissionDenied)
	case KindValidationFailed:
		return p.Sprintf(msgValidationFailed)
	default:
		return p.Sprintf(msgUnexpected)
	}
}

func (n *Normalizer) date(ctx map[string]any, keys ...string) string {
	v := text(ctx, keys...)
	if v == "" {
		return ""
	}
	return formatDate(n.dateLayout, v)
}

// text returns the first non-empty context value among keys.
func text(ctx map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := ctx[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}

func list(ctx map[string]any, keys ...string) string {
	for _, k := range keys {
		items, ok := ctx[k].([]any)
		if !ok || len(items) == 0 {
			continue
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, fmt.Sprint(it))
		}
		return strings.Join(parts, ", ")
	}
	return text(ctx, keys...)
}

func withFields(ctx map[string]any, fields []FieldError) map[string]any {
	out := make(map[string]any, len(ctx)+1)
	for k, v := range ctx {
		out[k] = v
	}
	out["fields"] = fields
	return out
}
