package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	LocalsKey   = "USER_CONTEXT"
	KeyEmail    = "admin_email"
	KeyIsAdmin  = "isAdmin"
	KeyCSRF     = "csrf"
	KeyLoggedIn = "authenticated"
)
