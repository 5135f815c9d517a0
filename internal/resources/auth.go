package resources

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/bassista/go_microassur/internal/envelope"
	"github.com/bassista/go_microassur/internal/session"
)

// Auth is the remote half of the session: POST /login and POST /logout.
type Auth struct {
	api apiclient.Requester
}

// NewAuth creates the login and logout client.
func NewAuth(api apiclient.Requester) *Auth {
	return &Auth{api: api}
}

type loginResponse struct {
	Token       string            `json:"token"`
	AccessToken string            `json:"access_token"`
	User        session.Principal `json:"user"`
}

func (a *Auth) Login(ctx context.Context, creds session.Credentials) (string, session.Principal, error) {
	resp, err := a.api.Request(ctx, http.MethodPost, "/login", creds, nil)
	if err != nil {
		return "", session.Principal{}, err
	}
	if !envelope.Succeeded(resp.Body) {
		return "", session.Principal{}, &apiclient.HTTPError{Method: http.MethodPost, Path: "/login", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	out, err := envelope.Single[loginResponse](resp.Body)
	if err != nil {
		return "", session.Principal{}, fmt.Errorf("decode login response: %w", err)
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	return token, out.User, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	_, err := a.api.Request(ctx, http.MethodPost, "/logout", nil, nil)
	return err
}
