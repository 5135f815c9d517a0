package resources

import (
	"context"
	"net/http"

	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/session"
)

var contractListOptions = query.Options{RefetchOnFocus: true}

// ContractInput addresses a contract write. ID is empty on create.
type ContractInput struct {
	Scope Scope
	ID    string
	Body  Record
}

// Contracts reads and writes the contracts of a partner.
type Contracts struct {
	b      *base
	create *query.Mutation[ContractInput, Record]
	update *query.Mutation[ContractInput, Record]
	remove *query.Mutation[ContractInput, Record]
}

func newContracts(b *base) *Contracts {
	invalidates := func(in ContractInput, _ Record) []query.Key {
		return []query.Key{{"contracts", in.Scope.Type}, {"dashboard", in.Scope.Type}}
	}
	authorize := func(needID bool) func(ContractInput) error {
		return func(in ContractInput) error {
			if err := validateScope(in.Scope); err != nil {
				return err
			}
			if needID && in.ID == "" {
				return ErrIDRequired
			}
			return b.authorize(session.CapWriteContracts, in.Scope)
		}
	}

	return &Contracts{
		b: b,
		create: &query.Mutation[ContractInput, Record]{
			Client:    b.cache,
			Name:      "contracts.create",
			Authorize: authorize(false),
			Do: func(ctx context.Context, in ContractInput) (Record, error) {
				return b.send(ctx, http.MethodPost, partnerPath("/contrats", in.Scope), in.Body)
			},
			Invalidates: invalidates,
		},
		update: &query.Mutation[ContractInput, Record]{
			Client:    b.cache,
			Name:      "contracts.update",
			Authorize: authorize(true),
			Do: func(ctx context.Context, in ContractInput) (Record, error) {
				return b.send(ctx, http.MethodPut, partnerPath("/contrats", in.Scope, in.ID), in.Body)
			},
			Invalidates: invalidates,
		},
		remove: &query.Mutation[ContractInput, Record]{
			Client:    b.cache,
			Name:      "contracts.delete",
			Authorize: authorize(true),
			Do: func(ctx context.Context, in ContractInput) (Record, error) {
				return b.send(ctx, http.MethodDelete, partnerPath("/contrats", in.Scope, in.ID), nil)
			},
			Invalidates: invalidates,
		},
	}
}

func contractsKey(scope Scope, f Filter) query.Key {
	return keyWith(query.Key{"contracts", scope.Type}, f)
}

func contractKey(scope Scope, id string) query.Key {
	return query.Key{"contracts", scope.Type, "detail", id}
}

// List returns one page of the partner's contracts.
func (c *Contracts) List(ctx context.Context, scope Scope, f Filter) (List, error) {
	if err := c.check(scope); err != nil {
		return List{}, err
	}
	return list(ctx, c.b, contractsKey(scope, f), partnerPath("/contrats", scope), f.values(), contractListOptions)
}

// WatchList subscribes to the list after the checks of List. The entry is
// refetched on invalidation while watched.
func (c *Contracts) WatchList(scope Scope, f Filter, listener func(query.State)) (*query.Subscription, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	return watch(c.b, contractsKey(scope, f), c.b.fetchList(partnerPath("/contrats", scope), f.values()), contractListOptions, listener), nil
}

func (c *Contracts) Get(ctx context.Context, scope Scope, id string) (Record, error) {
	if err := c.check(scope); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	return one(ctx, c.b, contractKey(scope, id), partnerPath("/contrats", scope, id), query.Options{})
}

func (c *Contracts) Create(ctx context.Context, in ContractInput) (Record, error) {
	return c.create.Mutate(ctx, in)
}

func (c *Contracts) Update(ctx context.Context, in ContractInput) (Record, error) {
	return c.update.Mutate(ctx, in)
}

func (c *Contracts) Delete(ctx context.Context, scope Scope, id string) error {
	_, err := c.remove.Mutate(ctx, ContractInput{Scope: scope, ID: id})
	return err
}

func (c *Contracts) check(scope Scope) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	return c.b.authorize("", scope)
}
