// Package challenge holds short-lived server-side state for WebAuthn
// ceremonies between the options request and the signed response.
//
// Registration ceremonies are keyed by the authenticated user's ID;
// login ceremonies are keyed by the challenge value itself because the
// responder is not yet identified. Every entry is consumed exactly once,
// which is what makes challenge replay impossible.
package challenge
