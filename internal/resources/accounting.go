package resources

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/session"
)

const installmentsPath = "/comptabilite/quittances"

var queueOptions = query.Options{RefetchOnFocus: true}

// InstallmentInput addresses one installment (quittance). Body carries the
// payment details on Pay (mode_paiement, reference, date_paiement, ...).
type InstallmentInput struct {
	ID   string
	Body Record
}

// Accounting is the installment (quittance) queue and its payment actions.
type Accounting struct {
	b        *base
	validate *query.Mutation[InstallmentInput, Record]
	pay      *query.Mutation[InstallmentInput, Record]
}

func newAccounting(b *base) *Accounting {
	authorize := func(in InstallmentInput) error {
		if in.ID == "" {
			return ErrIDRequired
		}
		return b.authorize(session.CapPayInstallment, Scope{})
	}
	invalidates := func(InstallmentInput, Record) []query.Key {
		return []query.Key{{"accounting"}, {"claims"}, {"dashboard"}}
	}
	action := func(name, verb string) *query.Mutation[InstallmentInput, Record] {
		return &query.Mutation[InstallmentInput, Record]{
			Client:    b.cache,
			Name:      name,
			Authorize: authorize,
			Do: func(ctx context.Context, in InstallmentInput) (Record, error) {
				return b.send(ctx, http.MethodPost, installmentsPath+"/"+url.PathEscape(in.ID)+"/"+verb, in.Body)
			},
			Invalidates: invalidates,
		}
	}
	return &Accounting{
		b:        b,
		validate: action("accounting.validate_installment", "valider"),
		pay:      action("accounting.pay_installment", "payer"),
	}
}

func queueKey(status string, page int) query.Key {
	return query.Key{"accounting", "installments", status, pageParam(page)}
}

func queueParams(status string, page int) url.Values {
	v := url.Values{"page": {pageParam(page)}}
	if status != "" {
		v.Set("statut", status)
	}
	return v
}

// Queue lists installments in status (empty for all), one page at a time.
func (a *Accounting) Queue(ctx context.Context, status string, page int) (List, error) {
	if err := a.b.authorize(session.CapViewAccounting, Scope{}); err != nil {
		return List{}, err
	}
	return list(ctx, a.b, queueKey(status, page), installmentsPath, queueParams(status, page), queueOptions)
}

func (a *Accounting) WatchQueue(status string, page int, listener func(query.State)) (*query.Subscription, error) {
	if err := a.b.authorize(session.CapViewAccounting, Scope{}); err != nil {
		return nil, err
	}
	return watch(a.b, queueKey(status, page), a.b.fetchList(installmentsPath, queueParams(status, page)), queueOptions, listener), nil
}

func (a *Accounting) ValidateInstallment(ctx context.Context, in InstallmentInput) (Record, error) {
	return a.validate.Mutate(ctx, in)
}

func (a *Accounting) Pay(ctx context.Context, in InstallmentInput) (Record, error) {
	return a.pay.Mutate(ctx, in)
}
