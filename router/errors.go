package router

import "errors"

var (
	// ErrRedirectLoop is returned by Router.Push when redirects exceed the
	// configured limit.
	ErrRedirectLoop = errors.New("navigation redirect loop")
	// ErrDuplicateRoute is returned by NewTable for two routes with one path.
	ErrDuplicateRoute = errors.New("duplicate route path")
	// ErrDuplicateName is returned by NewTable for two routes with one name.
	ErrDuplicateName = errors.New("duplicate route name")
	// ErrInvalidRoute is returned by NewTable for malformed route records.
	ErrInvalidRoute = errors.New("invalid route")
)
