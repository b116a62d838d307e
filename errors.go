package goPortal

import "errors"

var (
	// ErrLoginFailed wraps every Login failure. The cause (an *apiclient.Error,
	// apiclient.ErrMissingToken, ErrTokenStorage, a transport error) stays
	// reachable through errors.As / errors.Is.
	ErrLoginFailed = errors.New("login failed")
	// ErrTokenStorage reports a failure to persist or remove the token.
	ErrTokenStorage = errors.New("token storage failure")
	// ErrEngineNotReady is returned by operations on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrAPIClientRequired is returned by Build when no API client is set and
	// Config.API.BaseURL is empty.
	ErrAPIClientRequired = errors.New("api client required")
	// ErrTokenStorageRequired is returned by Build when neither a Redis client
	// nor a TokenStorage was supplied.
	ErrTokenStorageRequired = errors.New("token storage required")
	// ErrInvalidConfig wraps Config.Validate failures.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
