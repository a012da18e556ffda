package domain

import "golang.org/x/oauth2"

// Session is the per-request identity extracted from the signed session
// token. It carries the Google tokens needed to act on the user's mailbox.
type Session struct {
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
}

// OAuthToken builds the oauth2 token used against the provider API. The
// zero expiry means the transport never refreshes proactively; an access
// token invalidated upstream surfaces as a provider error and the user
// logs in again.
func (s Session) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}
