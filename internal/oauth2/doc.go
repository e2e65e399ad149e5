// Package oauth2 runs the lifecycle of GoHighLevel marketplace installations.
//
// # Components
//
//   - CredentialResolver picks the OAuth client credentials for a request:
//     a complete set supplied with the callback wins over the environment.
//   - LocationResolver implementations decide which location an installation
//     is bound to (token claims first, optional discovery through the API).
//   - Scheduler arms one timer per installation and refreshes the token at
//     max(lifetime*0.8, lifetime-padding).
//   - Converter exchanges an installation's Company token for a Location
//     token and caches it until the parent token changes.
//   - Manager ties them together: install, refresh, bulk refresh, status
//     queries and the periodic reconcile job.
//
// # Refresh serialization
//
// A refresh token is single use. Refreshes of one installation are joined
// in-process with singleflight and, when Redis is configured, serialized
// across replicas with a redsync lock named "refresh:<id>". The store's
// atomic Update applies the new token.
//
// # Usage
//
//	manager, err := oauth2.NewManager(oauth2.Options{
//	    Store:       store,
//	    Provider:    providerClient,
//	    Credentials: oauth2.NewCredentialResolver(envCreds),
//	    AutoRefresh: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	inst, err := manager.Install(ctx, code, nil)
package oauth2
