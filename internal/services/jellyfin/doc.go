// Package jellyfin talks to a Jellyfin server on behalf of an administrator.
//
// A Client owns one server session: it exchanges admin credentials for an
// access token, caches the token on disk so later runs skip the exchange, and
// transparently re-authenticates once when the server answers 401. Endpoints
// that Jellyfin only exposes to API keys go through APIKeyRequest and never
// re-authenticate.
package jellyfin
