// Package server exposes the playlist generation engine over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
// The [API] handler serves the JSON endpoints: /api/chat runs one
// conversation turn through the orchestrator, /api/verify cross-checks songs
// against the catalog, /api/search queries the catalog directly, and
// /api/upload pushes a verified playlist to the user's account.
//
// # Authentication
//
// The [AuthHandler] implements the OAuth2 authorization code flow against the
// catalog's accounts service. A successful callback exchanges the code,
// fetches the user profile, persists a session, and sets the session cookie
// the API endpoints read. The state parameter is validated for CSRF
// protection and each state value is accepted once.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
