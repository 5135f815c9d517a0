package resources

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/session"
)

// UserInput addresses a console account write. ID is empty on create.
type UserInput struct {
	ID   string
	Body Record
}

// Users manages console accounts; every operation requires an administrator.
type Users struct {
	b      *base
	create *query.Mutation[UserInput, Record]
	update *query.Mutation[UserInput, Record]
	remove *query.Mutation[UserInput, Record]
}

func newUsers(b *base) *Users {
	authorize := func(needID bool) func(UserInput) error {
		return func(in UserInput) error {
			if needID && in.ID == "" {
				return ErrIDRequired
			}
			return b.authorize(session.CapManageUsers, Scope{})
		}
	}
	invalidates := func(UserInput, Record) []query.Key {
		return []query.Key{{"users"}}
	}
	mutation := func(name, method string, needID bool) *query.Mutation[UserInput, Record] {
		return &query.Mutation[UserInput, Record]{
			Client:    b.cache,
			Name:      name,
			Authorize: authorize(needID),
			Do: func(ctx context.Context, in UserInput) (Record, error) {
				path := "/users"
				if in.ID != "" {
					path += "/" + url.PathEscape(in.ID)
				}
				return b.send(ctx, method, path, in.Body)
			},
			Invalidates: invalidates,
		}
	}
	return &Users{
		b:      b,
		create: mutation("users.create", http.MethodPost, false),
		update: mutation("users.update", http.MethodPut, true),
		remove: mutation("users.delete", http.MethodDelete, true),
	}
}

func (u *Users) List(ctx context.Context, f Filter) (List, error) {
	if err := u.b.authorize(session.CapManageUsers, Scope{}); err != nil {
		return List{}, err
	}
	return list(ctx, u.b, keyWith(query.Key{"users"}, f), "/users", f.values(), query.Options{})
}

func (u *Users) Create(ctx context.Context, body Record) (Record, error) {
	return u.create.Mutate(ctx, UserInput{Body: body})
}

func (u *Users) Update(ctx context.Context, id string, body Record) (Record, error) {
	return u.update.Mutate(ctx, UserInput{ID: id, Body: body})
}

func (u *Users) Delete(ctx context.Context, id string) error {
	_, err := u.remove.Mutate(ctx, UserInput{ID: id})
	return err
}
