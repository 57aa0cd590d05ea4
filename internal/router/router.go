package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/mentorship-escrow/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/mentorship-escrow/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/mentorship-escrow/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Routes that do not require an existing session: register, login and
	// the refresh variants.  Each handler generates or exchanges tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access does not.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: the handler accepts a
	// refresh_token body or an Authorization header and invalidates
	// accordingly.
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token.  All handlers registered on
	// this group execute the JWTAuth middleware before being invoked.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleMentee, model.RoleMentor, model.RoleAdmin))
	auth.GET("/me", a.Me)
	// Credential registration for signed delegated requests.
	auth.POST("/keys/signing", a.RegisterSigningKey)
	auth.POST("/keys/relay-secret", a.RegisterRelaySecret)

	// Top-level logout alias, outside the protected group.
	e.POST("/v1/logout", a.Logout)
}

// RegisterBookings registers the booking lifecycle and acknowledgment
// routes.  All of them require a session; fine-grained party checks
// (mentee vs mentor) happen inside the domain layer.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, s *handler.SessionHandler, w *handler.WalletHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleMentee, model.RoleMentor, model.RoleAdmin))

	// Booking lifecycle
	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.POST("/bookings/:id/claim", b.Claim)
	g.POST("/bookings/:id/refund", b.Refund)

	// Attendance acknowledgment
	g.GET("/sessions/:id/link", s.Link)
	g.GET("/sessions/:id/qr", s.QR)
	g.POST("/sessions/:id/ack", s.Ack)
	g.POST("/sessions/:id/no-show", s.NoShow)

	// Wallet
	g.GET("/wallet", w.Balance)
}

// RegisterPublic registers unauthenticated endpoints: the mentor directory
// lookup, the delegated-request relay (authorization is the signature inside
// the request) and the public custody figure.  The optional middleware (the
// response cache) applies to the public GET lookups only; it must never wrap
// an authenticated route, and the relay must never serve a cached response.
func RegisterPublic(e *echo.Echo, m *handler.MentorHandler, r *handler.RelayHandler, w *handler.WalletHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/v1/mentors/:address", m.Get, mw...)
	e.POST("/v1/relay", r.Process)
	e.GET("/v1/escrow/custodied", w.Custodied, mw...)
}

// RegisterAdmin registers the privileged routes.  Both gates apply: the
// ADMIN gate on the group (role claim or persisted grant) and the admin
// facades inside the handler.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, roles middleware.RoleChecker, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireAdmin(roles))

	g.POST("/bookings/:id/attendance", a.ConfirmAttendance)
	g.POST("/bookings/:id/start", a.MarkInProgress)
	g.POST("/sessions/:id/resolve", a.ResolveAttendance)
	g.PUT("/bookings/:id/status", a.OverrideStatus)
	g.POST("/escrows/:id/fee", a.ClaimPlatformFee)
	g.POST("/escrows/:id/refund", a.EmergencyRefund)
	g.PUT("/emergency", a.SetEmergencyMode)
	g.PUT("/platform-account", a.SetPlatformAccount)
	g.POST("/roles", a.GrantRole)
	g.DELETE("/roles", a.RevokeRole)
	g.POST("/wallets/deposit", a.Deposit)
}
