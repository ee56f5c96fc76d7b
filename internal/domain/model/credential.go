package model

import "time"

// ConnectionProperties holds the configuration fields delivered with a
// connection event. Nil fields were absent from the event and must not be
// written.
type ConnectionProperties struct {
	ClientID     *string `json:"clientId,omitempty"`
	ClientSecret *string `json:"clientSecret,omitempty"`
}

// ConnectionEvent is an inbound connection lifecycle notification.
type ConnectionEvent struct {
	Action           ConnectionAction     `json:"action"`
	ConnectionID     string               `json:"connectionId,omitempty"`
	Name             string               `json:"name,omitempty"`
	ConfigProperties ConnectionProperties `json:"configProperties"`
}

// ActiveCredentials is the credential set currently used for the
// client-credentials fallback. Empty fields mean the value is not stored.
type ActiveCredentials struct {
	ClientID     string
	ClientSecret string
	ConnectionID string
}

// HasClientCredentials reports whether both halves of the client credential
// pair are present.
func (c ActiveCredentials) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// MaskedCredentials is the display-safe view of the active credentials.
type MaskedCredentials struct {
	ClientID           string
	ClientSecretMasked string
	ConnectionID       string
}

// Session is a delegated per-account authorization with the requirements
// source.
type Session struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}
