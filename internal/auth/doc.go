// ABOUTME: Package documentation for the credential verification layer
// ABOUTME: Explains the verifier pattern and the shared error taxonomy

// Package auth verifies member credentials and manages sessions.
//
// Each login method has its own verifier (password, magic link, passkey)
// that resolves credentials to a store.User or fails with one of the
// package's sentinel errors. Verifiers are pure with respect to sessions:
// they never issue tokens or write audit records, that composition happens
// in the HTTP layer. Sessions are stateless HS256 JWTs produced by Issuer;
// the role snapshot inside a token is fixed at issue time.
package auth
