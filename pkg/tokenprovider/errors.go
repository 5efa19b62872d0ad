package tokenprovider

// AuthenticationError indicates the token endpoint rejected the client
// credentials. Retrying with the same credentials cannot succeed, so callers
// should surface this instead of retrying.
type AuthenticationError struct {
	Err error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Err.Error()
}

// Unwrap returns the underlying token endpoint error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
