// Package identity resolves the current actor for all other components.
// The session token is handed off from the web login flow; this package never
// performs authentication itself, it only carries the token and reads its
// claims. Signature verification is the backend's job.
package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusgig/gigcore/internal/config"
	"github.com/campusgig/gigcore/internal/util"
)

// TokenEnv overrides any configured token when set.
const TokenEnv = "GIGCORE_TOKEN"

var ErrNoToken = errors.New("no session token: set " + TokenEnv + ", identity.token, or identity.token_file")

// Session is the resolved identity exposed to every other component.
type Session struct {
	UserID string
	Name   string
	Token  string
}

// Resolve builds a Session from env, config, or the token file, in that
// order of precedence. baseDir anchors a relative token_file path.
func Resolve(cfg config.Identity, baseDir string) (*Session, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		token = strings.TrimSpace(cfg.Token)
	}
	if token == "" && cfg.TokenFile != "" {
		b, err := os.ReadFile(util.ResolvePath(baseDir, cfg.TokenFile))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNoToken
			}
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token = strings.TrimSpace(string(b))
	}
	if token == "" {
		return nil, ErrNoToken
	}

	userID, name, err := parseClaims(token)
	if err != nil {
		return nil, err
	}
	if cfg.Name != "" {
		name = cfg.Name
	}

	return &Session{UserID: userID, Name: name, Token: token}, nil
}

// parseClaims extracts the user id and display name from the token without
// verifying the signature. The backend issued the token; the relay and REST
// collaborators verify it on every request.
func parseClaims(token string) (userID, name string, err error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", "", fmt.Errorf("malformed session token: %w", err)
	}

	for _, key := range []string{"id", "_id", "userId", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			userID = v
			break
		}
	}
	if userID == "" {
		return "", "", errors.New("session token carries no user id claim")
	}
	if _, err := util.ValidateUserID(userID); err != nil {
		return "", "", fmt.Errorf("session token user id: %w", err)
	}

	name, _ = claims["name"].(string)
	return userID, name, nil
}
