package domain

import (
	"github.com/connectkit/credvault/internal/errors"
)

// Credential failure taxonomy shared by all adapters and the orchestrator.
//
// The wrapped sentinels from internal/errors drive HTTP status mapping and
// let callers branch with errors.Is across layers.
var (
	// ErrNoCredential indicates the tenant never connected the provider (or
	// the required credential kind was never stored).
	ErrNoCredential = errors.Wrap(errors.ErrNotFound, "no credential")

	// ErrExpiredNoRefresh indicates a credential existed but expired with no
	// way to renew it automatically. Terminal until the tenant reconnects.
	ErrExpiredNoRefresh = errors.Wrap(errors.ErrUnauthorized, "credential expired with no refresh token")

	// ErrRefreshFailed indicates a renewal attempt was rejected by the
	// upstream provider.
	ErrRefreshFailed = errors.Wrap(errors.ErrUnauthorized, "credential refresh failed")

	// ErrTransientNetwork indicates a transport-level failure talking to the
	// provider; the immediate caller may retry with backoff.
	ErrTransientNetwork = errors.Wrap(errors.ErrUnavailable, "transient network failure")

	// ErrReauthorizationRequired is terminal: automated renewal is impossible
	// and a human must re-grant access.
	ErrReauthorizationRequired = errors.Wrap(errors.ErrUnauthorized, "reauthorization required")

	// ErrConcurrencyTimeout indicates a caller gave up waiting on another
	// caller's in-flight refresh for the same identity.
	ErrConcurrencyTimeout = errors.Wrap(errors.ErrUnavailable, "timed out waiting for concurrent refresh")

	// ErrUnauthorizedToken is the signal a downstream API call returns when
	// the presented token was rejected (401). The reissuable adapter reacts
	// by re-issuing once; other callers treat it as ErrRefreshFailed input.
	ErrUnauthorizedToken = errors.Wrap(errors.ErrUnauthorized, "token rejected by downstream API")

	// ErrSessionExpired indicates the provider invalidated a session id
	// mid-cycle; the adapter clears its cached session so the next login
	// re-authenticates.
	ErrSessionExpired = errors.Wrap(errors.ErrUnauthorized, "session expired")

	// ErrConnectionNotFound indicates no connection row exists for the
	// tenant/provider pair.
	ErrConnectionNotFound = errors.Wrap(errors.ErrNotFound, "connection not found")
)
