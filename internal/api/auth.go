package api

import "context"

// User is the authenticated profile returned by /auth/me.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Me fetches the profile behind the session token. Useful as a token
// liveness check at startup.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a session token. The console client only
// uses this when no handed-off token is available.
func (c *Client) Login(ctx context.Context, email, password string) (string, *User, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.post(ctx, "/auth/login", body, &out); err != nil {
		return "", nil, err
	}
	return out.Token, &out.User, nil
}
