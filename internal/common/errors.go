// Package common defines shared constants and sentinel errors used across
// the synchronization core. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// State errors.
	ErrScopeNotSelected = errors.New("scope not selected")
	ErrNotFound         = errors.New("not found")

	// Transport-level errors. ErrUnavailable marks connectivity failures and
	// 5xx responses; mutations that hit it degrade to queueing instead of
	// failing.
	ErrUnavailable    = errors.New("server unavailable")
	ErrConflict       = errors.New("conflict")
	ErrRemoteRejected = errors.New("rejected by server")

	// Sync lifecycle errors.
	ErrResolvedConflict     = errors.New("resolved conflict")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// Deletion errors.
	ErrHardDeleteBlocked     = errors.New("hard delete blocked")
	ErrTokenInvalidOrExpired = errors.New("undo token invalid or expired")
)
