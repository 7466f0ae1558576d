package conveyancing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/schemas"
	"github.com/conveydesk/conveydesk/internal/session"
)

const (
	LoginPath  = "/auth/login"
	LogoutPath = "/auth/logout"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth runs the login and logout flows. These are the only writers of the session store.
type Auth struct {
	sender  Sender
	store   session.Store
	schemas *schemas.Registry
}

func NewAuth(sender Sender, store session.Store, registry *schemas.Registry) *Auth {
	if registry == nil {
		registry = schemas.Default()
	}
	return &Auth{
		sender:  sender,
		store:   store,
		schemas: registry,
	}
}

// Login exchanges the user's credentials for a bearer token and saves it in the store.
func (a *Auth) Login(ctx context.Context, email, password string) (session.Session, client.Result, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return session.Session{}, client.Result{}, fmt.Errorf("encoding login request: %w", err)
	}

	res := a.sender.Send(ctx, client.Descriptor{
		Path:   LoginPath,
		Method: http.MethodPost,
		Body:   client.JSON(body),
	})
	if !res.OK {
		return session.Session{}, res, res.Err()
	}

	if err := a.schemas.Validate(schemas.Login, res.Results); err != nil {
		return session.Session{}, res, fmt.Errorf("login response: %w", err)
	}

	s := session.Session{Token: res.Get("token").String()}
	if user := res.Get("user"); user.IsObject() {
		s.User = json.RawMessage(user.Raw)
	}

	if err := a.store.Set(s); err != nil {
		return session.Session{}, res, fmt.Errorf("saving session: %w", err)
	}
	return s, res, nil
}

// Logout tells the API to revoke the stored token, then clears the store whatever the outcome.
// The API call is skipped when nothing is stored and the zero Result is returned.
func (a *Auth) Logout(ctx context.Context) (client.Result, error) {
	var res client.Result

	// an unreadable session is still cleared below
	if s, err := a.store.Get(); err == nil {
		res = a.sender.Send(ctx, client.Descriptor{
			Path:          LogoutPath,
			Method:        http.MethodPost,
			ExplicitToken: s.Token,
		})
	}

	if err := a.store.Clear(); err != nil {
		return res, fmt.Errorf("clearing session: %w", err)
	}
	return res, nil
}
