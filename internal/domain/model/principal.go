package model

// PersonName is the structured name of a principal.
type PersonName struct {
	FormattedName string `json:"formatted,omitempty"`
	GivenName     string `json:"givenName,omitempty"`
	FamilyName    string `json:"familyName,omitempty"`
}

// Principal is a user identity ingested into the graph store.
type Principal struct {
	ExternalID   string     `json:"externalId"`
	DisplayName  string     `json:"displayName"`
	UserName     string     `json:"userName"`
	Name         PersonName `json:"name"`
	PrimaryEmail string     `json:"email"`
}

// UserMapping links an ingested principal to a platform account.
type UserMapping struct {
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
}
