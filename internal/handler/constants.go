package handler

// Route paths used across handlers and redirects.
const (
	RouteRoot     = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"
	RouteUserForm = "/user-form"

	RouteAdminLogin  = "/admin/login"
	RouteAdminLogout = "/admin/logout"

	RouteAdminHome          = "/admin/dashboard/home"
	RouteAdminUsers         = "/admin/dashboard/users"
	RouteAdminSocialHandles = "/admin/dashboard/social-handles"
	RouteAdminImages        = "/admin/dashboard/images"
)

// Flash message types.
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// confirmValue is the form value a delete form must carry before the
// mutation is attempted.
const confirmValue = "yes"
