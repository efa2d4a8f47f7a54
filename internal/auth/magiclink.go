// ABOUTME: Magic link issuance and redemption for passwordless email login
// ABOUTME: Requests always look identical externally; redemption is single-use

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kredsnet/medlemsportal/internal/store"
)

// MagicLinkTTL is how long an issued link stays redeemable.
const MagicLinkTTL = 15 * time.Minute

// purgeGrace is how long spent or expired tokens linger before cleanup.
const purgeGrace = time.Hour

// LinkSender delivers a login link to an address. Implementations must not
// block the caller longer than a normal SMTP round trip.
type LinkSender interface {
	SendLoginLink(ctx context.Context, to, name, url string) error
}

// MagicLinkVerifier issues single-use login tokens by email and redeems them.
type MagicLinkVerifier struct {
	users   store.UserStore
	links   store.MagicLinkStore
	sender  LinkSender
	baseURL string
	logger  *slog.Logger
}

// NewMagicLinkVerifier creates a verifier. baseURL is the public origin used
// to build link URLs, without a trailing slash.
func NewMagicLinkVerifier(users store.UserStore, links store.MagicLinkStore, sender LinkSender, baseURL string) *MagicLinkVerifier {
	return &MagicLinkVerifier{
		users:   users,
		links:   links,
		sender:  sender,
		baseURL: baseURL,
		logger:  slog.Default().With("component", "auth"),
	}
}

// Request mints a login link for the given email and dispatches it. The
// error is identical whether or not the email matches an active account;
// only the mailbox differs. The issued flag reports whether a link actually
// went out, so callers can audit matched requests without logging every
// probed address. It must never shape the HTTP response. Email dispatch
// happens in the background so delivery latency never shapes the response
// either.
func (v *MagicLinkVerifier) Request(ctx context.Context, email string) (issued bool, err error) {
	// Opportunistic cleanup of tokens past their grace period.
	if err := v.links.PurgeExpiredMagicLinks(ctx, time.Now().Add(-purgeGrace)); err != nil {
		v.logger.Warn("magic link purge failed", "error", err)
	}

	user, err := v.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !user.IsActive {
		return false, nil
	}

	link := &store.MagicLink{
		Token:     store.NewMagicLinkToken(),
		Email:     user.Email,
		ExpiresAt: time.Now().Add(MagicLinkTTL),
	}
	if err := v.links.CreateMagicLink(ctx, link); err != nil {
		return false, fmt.Errorf("creating magic link: %w", err)
	}

	url := fmt.Sprintf("%s/api/auth/magic-link/verify?token=%s", v.baseURL, link.Token)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := v.sender.SendLoginLink(sendCtx, user.Email, user.Name, url); err != nil {
			v.logger.Error("magic link delivery failed", "user_id", user.ID, "error", err)
		}
	}()

	return true, nil
}

// Redeem consumes a token and resolves it to its user. A token that was
// issued but is spent or past its expiry fails with ErrExpiredLink; an
// unknown token or an owner that has since been deactivated fails with
// ErrInvalidOrExpiredLink. Consumption is atomic: concurrent redemptions
// of the same token have a single winner.
func (v *MagicLinkVerifier) Redeem(ctx context.Context, token string) (*store.User, error) {
	link, err := v.links.ConsumeMagicLink(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, v.classifyDeadToken(ctx, token)
		}
		return nil, err
	}

	user, err := v.users.GetUserByEmail(ctx, link.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpiredLink
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidOrExpiredLink
	}

	return user, nil
}

// classifyDeadToken tells a spent or expired token apart from one that was
// never issued. The read happens after the failed consume so it cannot race
// a concurrent winner into a second success.
func (v *MagicLinkVerifier) classifyDeadToken(ctx context.Context, token string) error {
	link, err := v.links.GetMagicLink(ctx, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			v.logger.Warn("magic link classification failed", "error", err)
		}
		return ErrInvalidOrExpiredLink
	}
	if link.UsedAt != nil || !link.ExpiresAt.After(time.Now()) {
		return ErrExpiredLink
	}
	return ErrInvalidOrExpiredLink
}
