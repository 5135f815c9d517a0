package resources

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/session"
)

var claimListOptions = query.Options{RefetchOnFocus: true}

// ClaimInput addresses a claim write. ID is empty on create.
type ClaimInput struct {
	Scope Scope
	ID    string
	Body  Record
}

// StatusChange moves a claim to Status, with an optional comment.
type StatusChange struct {
	Scope   Scope
	ID      string
	Status  string
	Comment string
}

// Claims reads claims and drives their lifecycle.
type Claims struct {
	b            *base
	create       *query.Mutation[ClaimInput, Record]
	validate     *query.Mutation[ClaimInput, Record]
	closeClaim   *query.Mutation[ClaimInput, Record]
	changeStatus *query.Mutation[StatusChange, Record]
}

func newClaims(b *base) *Claims {
	gate := func(capability session.Capability, needID bool) func(Scope, string) error {
		return func(scope Scope, id string) error {
			if err := validateScope(scope); err != nil {
				return err
			}
			if needID && id == "" {
				return ErrIDRequired
			}
			return b.authorize(capability, scope)
		}
	}
	lifecycle := func(in ClaimInput, _ Record) []query.Key {
		return []query.Key{{"claims", in.Scope.Type}, {"accounting"}, {"dashboard", in.Scope.Type}}
	}

	declare := gate(session.CapDeclareClaim, false)
	validate := gate(session.CapValidateClaim, true)
	closing := gate(session.CapCloseClaim, true)
	status := gate(session.CapChangeClaimStatus, true)

	return &Claims{
		b: b,
		create: &query.Mutation[ClaimInput, Record]{
			Client:    b.cache,
			Name:      "claims.create",
			Authorize: func(in ClaimInput) error { return declare(in.Scope, "") },
			Do: func(ctx context.Context, in ClaimInput) (Record, error) {
				return b.send(ctx, http.MethodPost, partnerPath("/sinistres", in.Scope), in.Body)
			},
			Invalidates: func(in ClaimInput, _ Record) []query.Key {
				return []query.Key{{"claims", in.Scope.Type}, {"contracts", in.Scope.Type}, {"dashboard", in.Scope.Type}}
			},
		},
		validate: &query.Mutation[ClaimInput, Record]{
			Client:    b.cache,
			Name:      "claims.validate",
			Authorize: func(in ClaimInput) error { return validate(in.Scope, in.ID) },
			Do: func(ctx context.Context, in ClaimInput) (Record, error) {
				return b.send(ctx, http.MethodPost, partnerPath("/sinistres", in.Scope, in.ID, "valider"), in.Body)
			},
			Invalidates: lifecycle,
		},
		closeClaim: &query.Mutation[ClaimInput, Record]{
			Client:    b.cache,
			Name:      "claims.close",
			Authorize: func(in ClaimInput) error { return closing(in.Scope, in.ID) },
			Do: func(ctx context.Context, in ClaimInput) (Record, error) {
				return b.send(ctx, http.MethodPost, partnerPath("/sinistres", in.Scope, in.ID, "cloturer"), in.Body)
			},
			Invalidates: lifecycle,
		},
		changeStatus: &query.Mutation[StatusChange, Record]{
			Client:    b.cache,
			Name:      "claims.change_status",
			Authorize: func(in StatusChange) error { return status(in.Scope, in.ID) },
			Do: func(ctx context.Context, in StatusChange) (Record, error) {
				body := Record{"statut": in.Status}
				if in.Comment != "" {
					body["commentaire"] = in.Comment
				}
				return b.send(ctx, http.MethodPatch, partnerPath("/sinistres", in.Scope, in.ID, "statut"), body)
			},
			Invalidates: func(in StatusChange, _ Record) []query.Key {
				return []query.Key{{"claims", in.Scope.Type}, {"dashboard", in.Scope.Type}}
			},
		},
	}
}

func claimsKey(scope Scope, f Filter) query.Key {
	return keyWith(query.Key{"claims", scope.Type}, f)
}

func claimKey(scope Scope, id string) query.Key {
	return query.Key{"claims", scope.Type, "detail", id}
}

func (c *Claims) List(ctx context.Context, scope Scope, f Filter) (List, error) {
	if err := c.check(scope); err != nil {
		return List{}, err
	}
	return list(ctx, c.b, claimsKey(scope, f), partnerPath("/sinistres", scope), f.values(), claimListOptions)
}

func (c *Claims) WatchList(scope Scope, f Filter, listener func(query.State)) (*query.Subscription, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	return watch(c.b, claimsKey(scope, f), c.b.fetchList(partnerPath("/sinistres", scope), f.values()), claimListOptions, listener), nil
}

func (c *Claims) Get(ctx context.Context, scope Scope, id string) (Record, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	return one(ctx, c.b, claimKey(scope, id), partnerPath("/sinistres", scope, id), query.Options{})
}

// Create declares a claim against a contract.
func (c *Claims) Create(ctx context.Context, in ClaimInput) (Record, error) {
	return c.create.Mutate(ctx, in)
}

func (c *Claims) Validate(ctx context.Context, in ClaimInput) (Record, error) {
	return c.validate.Mutate(ctx, in)
}

// Close is refused locally, before any request, to roles that cannot close claims.
func (c *Claims) Close(ctx context.Context, in ClaimInput) (Record, error) {
	return c.closeClaim.Mutate(ctx, in)
}

func (c *Claims) ChangeStatus(ctx context.Context, in StatusChange) (Record, error) {
	return c.changeStatus.Mutate(ctx, in)
}

func (c *Claims) check(scope Scope) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	return c.b.authorize("", scope)
}
