// Package ratelimit implements fixed-window per-key request throttling.
//
// Each abuse-prone endpoint owns its own Limiter instance with its own
// ceiling and window (magic-link requests, magic-link verification,
// passkey challenge issuance, outbound mail). Denial is terminal: the
// caller surfaces it as "too many requests" and never retries on the
// client's behalf.
package ratelimit
