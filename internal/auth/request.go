package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrBadScheme    = errors.New("invalid authorization format")
)

// BearerToken returns the token from the "Authorization: Bearer" header.
// With allowQuery set, a ?token= query parameter is accepted when the header
// is absent; websocket upgrades from a browser can only authenticate that way.
func BearerToken(r *http.Request, allowQuery bool) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if allowQuery {
			if tok := r.URL.Query().Get("token"); tok != "" {
				return tok, nil
			}
		}
		return "", ErrMissingToken
	}

	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
		return "", ErrBadScheme
	}
	return strings.TrimSpace(tok), nil
}

// Verify extracts and validates the caller's token.
func Verify(r *http.Request, secret string, allowQuery bool) (*Claims, error) {
	tok, err := BearerToken(r, allowQuery)
	if err != nil {
		return nil, err
	}
	return ValidateToken(secret, tok)
}
