//go:build windows

package servicectl

// SCM services run under accounts managed by the service database, so
// there is no unix-style directory ownership to verify.
func checkOwnership(*Config, *ValidationError) {}
