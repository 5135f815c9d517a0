// Package resources holds the query and mutation units of each backend
// resource family. Every read goes through the shared query cache and every
// write declares the cache prefixes it invalidates.
package resources

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/bassista/go_microassur/internal/apperror"
	"github.com/bassista/go_microassur/internal/envelope"
	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/session"
)

var (
	ErrPartnerRequired = errors.New("resources: partner type is required")
	ErrIDRequired      = errors.New("resources: resource id is required")
)

// Record is a backend entity. The console does not interpret its fields.
type Record map[string]any

// List is a decoded collection page.
type List = envelope.Page[Record]

// Scope identifies a partner institution: Type is its code in URLs ("bamboo",
// "cofidec", ...), ID its numeric id when known (0 otherwise).
type Scope struct {
	Type string
	ID   int64
}

// Filter holds list query parameters (statut, page, search, ...).
type Filter map[string]string

func (f Filter) values() url.Values {
	v := url.Values{}
	for k, val := range f.clean() {
		v.Set(k, val)
	}
	return v
}

// clean drops empty values so {} and {"statut": ""} share one cache entry.
func (f Filter) clean() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Principals exposes the current principal to authorization checks.
type Principals interface {
	Current() (session.Principal, bool)
}

// Service groups the resource units over one backend and one cache.
type Service struct {
	Auth       *Auth
	Contracts  *Contracts
	Claims     *Claims
	Accounting *Accounting
	Users      *Users
	Partners   *Partners
	Dashboard  *Dashboard
}

// New builds the resource units over one backend client and one cache.
func New(api apiclient.Requester, cache *query.Client, principals Principals) *Service {
	b := &base{api: api, cache: cache, principals: principals}
	return &Service{
		Auth:       NewAuth(api),
		Contracts:  newContracts(b),
		Claims:     newClaims(b),
		Accounting: newAccounting(b),
		Users:      newUsers(b),
		Partners:   &Partners{b: b},
		Dashboard:  &Dashboard{b: b},
	}
}

type base struct {
	api        apiclient.Requester
	cache      *query.Client
	principals Principals
}

// authorize runs the local checks of a gated operation: a session, the
// capability and, when the partner id is known, the affiliation.
func (b *base) authorize(capability session.Capability, scope Scope) error {
	p, ok := b.principals.Current()
	if !ok {
		return session.ErrNotAuthenticated
	}
	if capability != "" && !session.Can(p.Role, capability) {
		return apperror.Denied(string(capability))
	}
	if scope.ID != 0 && !p.CanAccessPartner(scope.ID) {
		return apperror.Denied("partner_scope")
	}
	return nil
}

func (b *base) request(ctx context.Context, method, path string, body any, params url.Values) (*apiclient.RawResponse, error) {
	resp, err := b.api.Request(ctx, method, path, body, params)
	if err != nil {
		return nil, err
	}
	// A 2xx envelope can still report {"success": false, "message": ...}.
	if !envelope.Succeeded(resp.Body) {
		return nil, &apiclient.HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (b *base) fetchList(path string, params url.Values) func(ctx context.Context) (List, error) {
	return func(ctx context.Context) (List, error) {
		resp, err := b.request(ctx, http.MethodGet, path, nil, params)
		if err != nil {
			return List{}, err
		}
		return envelope.Paginated[Record](resp.Body)
	}
}

func (b *base) fetchOne(path string) func(ctx context.Context) (Record, error) {
	return func(ctx context.Context) (Record, error) {
		resp, err := b.request(ctx, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, err
		}
		return envelope.Single[Record](resp.Body)
	}
}

// send performs a write and decodes the returned resource, if any.
func (b *base) send(ctx context.Context, method, path string, body Record) (Record, error) {
	var payload any
	if body != nil {
		payload = body
	}
	resp, err := b.request(ctx, method, path, payload, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 || resp.StatusCode == http.StatusNoContent {
		return Record{}, nil
	}
	return envelope.Single[Record](resp.Body)
}

func list(ctx context.Context, b *base, key query.Key, path string, params url.Values, opts query.Options) (List, error) {
	return query.Get(ctx, b.cache, key, b.fetchList(path, params), opts)
}

func one(ctx context.Context, b *base, key query.Key, path string, opts query.Options) (Record, error) {
	return query.Get(ctx, b.cache, key, b.fetchOne(path), opts)
}

func watch[T any](b *base, key query.Key, fn func(ctx context.Context) (T, error), opts query.Options, listener func(query.State)) *query.Subscription {
	return b.cache.Subscribe(key, func(ctx context.Context) (any, error) { return fn(ctx) }, opts, listener)
}

// keyWith appends the filter to key when it has values, so an empty filter
// shares the entry of no filter.
func keyWith(key query.Key, f Filter) query.Key {
	clean := f.clean()
	if len(clean) == 0 {
		return key
	}
	return append(key, clean)
}

func partnerPath(prefix string, scope Scope, rest ...string) string {
	p := prefix + "/" + url.PathEscape(scope.Type)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

func pageParam(page int) string {
	if page <= 0 {
		page = 1
	}
	return strconv.Itoa(page)
}

func validateScope(scope Scope) error {
	if scope.Type == "" {
		return ErrPartnerRequired
	}
	return nil
}
