// Package auth holds the credential and token primitives of the CRM and the
// gate every mutating operation passes through.
//
// The gate verifies a bearer token, resolves the caller's department against
// a permission policy and returns the subset of requested permissions the
// caller actually holds. Record ownership is checked separately by callers.
package auth
