// Package guard gates page transitions on session state. The decision is a
// pure function of route metadata and the session; the middleware only adds
// the wait for session readiness so no decision is ever made against an
// uninitialized store.
package guard

import "github.com/campusudc/asesorias-api/internal/models"

// Well-known redirect targets.
const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"
)

// Route is the navigation metadata attached to a page.
type Route struct {
	Name          string
	RequiresAuth  bool
	RequiresGuest bool
	AllowedRoles  []models.Role
}

// Action is the outcome kind of a guard decision.
type Action int

const (
	Proceed Action = iota
	Redirect
)

// Decision is the navigation outcome: proceed, or redirect to a target route.
type Decision struct {
	Action Action
	Target string
}

var proceed = Decision{Action: Proceed}

// Decide resolves a navigation attempt. Routes requiring authentication
// redirect to login when anonymous; a role mismatch on a restricted route
// redirects to the dashboard, never to login. Guest-only routes bounce
// authenticated users back to the dashboard.
func Decide(route Route, authenticated bool, role models.Role) Decision {
	if route.RequiresAuth {
		if !authenticated {
			return Decision{Action: Redirect, Target: RouteLogin}
		}
		if len(route.AllowedRoles) > 0 && !roleAllowed(route.AllowedRoles, role) {
			return Decision{Action: Redirect, Target: RouteDashboard}
		}
		return proceed
	}

	if route.RequiresGuest && authenticated {
		return Decision{Action: Redirect, Target: RouteDashboard}
	}

	return proceed
}

func roleAllowed(allowed []models.Role, role models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
