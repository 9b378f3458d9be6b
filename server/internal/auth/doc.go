// Package auth provides authentication middleware for serialbridge-server.
//
// APIKeyMiddleware(mode, header, key, next) wraps an http.Handler so that
// requests must carry the shared API key in the named header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware responds 401 Unauthorized immediately.
package auth
