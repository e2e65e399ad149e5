package oauth2

import (
	"sync"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/validation"
	"ghl-oauth-manager/internal/provider"
)

// CredentialResolver decides which client credentials a call uses.
// Credentials supplied with a callback are remembered in memory for the
// installation they created so its refreshes use the same app.
type CredentialResolver struct {
	env       provider.Credentials
	validator *validation.CentralizedValidator

	mu         sync.RWMutex
	remembered map[string]provider.Credentials
}

// NewCredentialResolver creates a resolver with the environment credentials
func NewCredentialResolver(env provider.Credentials) *CredentialResolver {
	return &CredentialResolver{
		env:        env,
		validator:  validation.NewCentralizedValidator(),
		remembered: make(map[string]provider.Credentials),
	}
}

// Configured reports whether environment credentials are complete
func (r *CredentialResolver) Configured() bool {
	return r.env.Complete()
}

// Environment returns the environment credentials
func (r *CredentialResolver) Environment() provider.Credentials {
	return r.env
}

// Resolve returns override when it is complete, the environment otherwise.
// A partial override is rejected rather than mixed with the environment.
func (r *CredentialResolver) Resolve(override *provider.Credentials) (provider.Credentials, error) {
	if override != nil && !override.Empty() {
		if !override.Complete() {
			return provider.Credentials{}, errors.MissingCredentialsError(
				"oauth_credentials must include client_id, client_secret and redirect_uri")
		}
		return r.validate(*override)
	}

	if !r.env.Complete() {
		return provider.Credentials{}, errors.MissingCredentialsError("OAuth client credentials are not configured")
	}
	return r.validate(r.env)
}

func (r *CredentialResolver) validate(creds provider.Credentials) (provider.Credentials, error) {
	if err := r.validator.ValidateStruct(creds); err != nil {
		appErr, _ := errors.As(err)
		msg := "invalid OAuth credentials"
		if appErr != nil {
			msg = appErr.Message
		}
		return provider.Credentials{}, errors.MissingCredentialsError(msg).WithCause(err)
	}
	return creds, nil
}

// Remember binds credentials to an installation
func (r *CredentialResolver) Remember(installationID string, creds provider.Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remembered[installationID] = creds
}

// Forget drops remembered credentials
func (r *CredentialResolver) Forget(installationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.remembered, installationID)
}

// ForInstallation returns the credentials used to refresh installationID
func (r *CredentialResolver) ForInstallation(installationID string) (provider.Credentials, error) {
	r.mu.RLock()
	creds, ok := r.remembered[installationID]
	r.mu.RUnlock()
	if ok {
		return creds, nil
	}
	return r.Resolve(nil)
}
