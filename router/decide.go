package router

// Kind is the outcome of a guard decision.
type Kind uint8

const (
	// Allow lets the navigation proceed unmodified.
	Allow Kind = iota
	// Redirect aborts the navigation and substitutes Decision.Path.
	Redirect
)

// Reason explains why a decision redirected.
type Reason uint8

const (
	// ReasonNone accompanies Allow decisions.
	ReasonNone Reason = iota
	// ReasonAuthRequired redirects an anonymous visitor to the login page.
	ReasonAuthRequired
	// ReasonAuthenticated redirects a signed-in visitor away from the login page.
	ReasonAuthenticated
)

// Decision is the guard verdict for one transition.
type Decision struct {
	Kind   Kind
	Path   string
	Reason Reason
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

func (d Decision) String() string {
	if d.Kind == Allow {
		return "allow"
	}
	return "redirect(" + d.Path + ")"
}

// Config holds the guard's fixed navigation targets.
type Config struct {
	// LoginPath is both the login page and the redirect target for
	// anonymous visitors of protected routes.
	LoginPath string
	// DefaultAuthenticatedPath is where signed-in visitors of LoginPath land.
	DefaultAuthenticatedPath string
	// MaxRedirects bounds redirect chains followed by Router.Push.
	MaxRedirects int
}

// DefaultConfig returns the portal defaults.
func DefaultConfig() Config {
	return Config{
		LoginPath:                PathLogin,
		DefaultAuthenticatedPath: PathServiceRequests,
		MaxRedirects:             10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LoginPath == "" {
		c.LoginPath = def.LoginPath
	}
	if c.DefaultAuthenticatedPath == "" {
		c.DefaultAuthenticatedPath = def.DefaultAuthenticatedPath
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = def.MaxRedirects
	}
	c.LoginPath = normalizePath(c.LoginPath)
	c.DefaultAuthenticatedPath = normalizePath(c.DefaultAuthenticatedPath)
	return c
}

// Decide evaluates the guard rules in order:
//
//  1. a protected target without a token redirects to LoginPath;
//  2. LoginPath with a token redirects to DefaultAuthenticatedPath;
//  3. anything else is allowed.
//
// Decide performs no I/O; any user fetch must already have happened.
func Decide(hasToken bool, to Location, cfg Config) Decision {
	cfg = cfg.withDefaults()

	if to.Meta.RequiresAuth && !hasToken {
		return Decision{Kind: Redirect, Path: cfg.LoginPath, Reason: ReasonAuthRequired}
	}
	if normalizePath(to.Path) == cfg.LoginPath && hasToken {
		return Decision{Kind: Redirect, Path: cfg.DefaultAuthenticatedPath, Reason: ReasonAuthenticated}
	}
	return Decision{Kind: Allow}
}
