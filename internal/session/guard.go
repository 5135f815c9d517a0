package session

// Decision is the outcome of the route guard.
type Decision string

const (
	Render          Decision = "render"
	RedirectLogin   Decision = "redirect_login"
	RedirectLanding Decision = "redirect_landing"
	// Wait means the session is still hydrating; nothing should be decided yet.
	Wait Decision = "wait"
)

// GuardInput is the session state a route guard decides on.
type GuardInput struct {
	Authenticated bool
	Loading       bool
	Role          Role
}

// Guard decides whether a route requiring one of required (any role when
// empty) may render. Besides Render, RedirectLogin and RedirectLanding it
// returns a fourth outcome, Wait, while the session is still loading, so a
// stored session is never redirected to the login page before hydration ends.
func Guard(in GuardInput, required ...Role) Decision {
	switch {
	case in.Loading:
		return Wait
	case !in.Authenticated:
		return RedirectLogin
	case len(required) > 0 && !HasRole(in.Role, required...):
		return RedirectLanding
	default:
		return Render
	}
}

// Location is the redirect target of d, empty when d does not redirect.
func (d Decision) Location(role Role) string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectLanding:
		return LandingPath(role)
	default:
		return ""
	}
}
