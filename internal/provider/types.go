// Package provider talks to the GoHighLevel OAuth and API endpoints: code
// exchange, refresh, Company to Location token conversion and the two
// lookups used by location discovery.
//
// Every failure leaving this package is an *errors.AppError. Provider
// failures are provider_rejected, provider_unavailable or timeout. Code
// exchange without usable app credentials fails with missing_credentials,
// and a request that cannot be built fails with internal.
package provider

// Credentials identify the marketplace app
type Credentials struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RedirectURI  string `json:"redirect_uri" validate:"required,absolute_url"`
}

// Complete reports whether every field is set
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// Empty reports whether no field is set
func (c Credentials) Empty() bool {
	return c.ClientID == "" && c.ClientSecret == "" && c.RedirectURI == ""
}

// TokenResponse is the JSON body of a successful token call
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	UserType     string `json:"userType,omitempty"`
	CompanyID    string `json:"companyId,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	UserID       string `json:"userId,omitempty"`
}

// Location is a sub-account returned by the location search
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type oauthErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

const (
	// DefaultBaseURL is the production API host
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	// DefaultMarketplaceURL hosts the install consent screen
	DefaultMarketplaceURL = "https://marketplace.gohighlevel.com"
	// APIVersion is sent in the Version header of API calls
	APIVersion = "2021-07-28"
	// UserTypeLocation is requested on every token grant
	UserTypeLocation = "Location"

	maxStoredBody = 1024
)
