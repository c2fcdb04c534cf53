// package auth manages the Spotify credential record and the OAuth2
// authorization-code lifecycle around it.
package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the persisted token record for the single local user.
//
// RefreshToken, once obtained, is only replaced when the token endpoint
// returns a new one; it is never discarded on refresh.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
}

// Fresh reports whether the access token is still usable at the given
// time, leaving the provided safety margin before the recorded expiry.
func (c *Credentials) Fresh(now time.Time, margin time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return false
	}
	return now.Before(c.Expiry.Add(-margin))
}

// Update applies a token-endpoint response to the record, keeping the
// existing refresh token when the response omits one.
func (c *Credentials) Update(token *oauth2.Token) {
	c.AccessToken = token.AccessToken
	c.Expiry = token.Expiry
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
}

// FromToken builds a credential record from an initial code exchange.
func FromToken(token *oauth2.Token, scopes []string) *Credentials {
	creds := &Credentials{Scopes: scopes}
	creds.Update(token)
	return creds
}
