package gateway

import (
	"context"
	"fmt"
	"net/http"

	"unidelas/safety-agent/internal/model"
)

// Credentials carries the login form plus the push channel this agent
// listens on, so the backend can address emergency notifications to it.
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"senha"`
	PushToken string `json:"pushToken"`
}

// Registration is the sign-up form.
type Registration struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// Login authenticates against the backend. The session cookie lands in the
// client's jar; the returned identity is what callers persist locally.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.UserIdentity, error) {
	if creds.Email == "" || creds.Password == "" {
		return model.UserIdentity{}, fmt.Errorf("email and password are required")
	}

	var resp struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	if err := c.do(ctx, http.MethodPost, "/login", creds, &resp); err != nil {
		return model.UserIdentity{}, err
	}
	return model.UserIdentity{ID: resp.ID, Email: resp.Email}, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/users", reg, nil)
}

// SearchUser finds a user by e-mail address.
func (c *Client) SearchUser(ctx context.Context, email string) (model.TrustedContact, error) {
	var user model.TrustedContact
	if err := c.do(ctx, http.MethodGet, "/usuarios/search/"+email, nil, &user); err != nil {
		return model.TrustedContact{}, err
	}
	return user, nil
}
