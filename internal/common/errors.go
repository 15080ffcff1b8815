// Package common defines shared constants and sentinel errors used across
// gaiasync components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Remote catalogue service errors. A transient network failure ends the
	// current region run; rerunning the batch later is always safe because
	// persistence is idempotent. A remote service error means the service
	// rejected or failed the query itself.
	ErrTransientNetwork = errors.New("transient network error")
	ErrRemoteService    = errors.New("remote service error")

	// Persistence errors (store unreachable, constraint violation other
	// than the expected conflict-ignore).
	ErrStorage = errors.New("storage error")

	// Session errors (login failure). Never fatal: the engine degrades to
	// anonymous mode.
	ErrSession = errors.New("session error")

	// Artifact cleanup errors (remote job/temporary table removal failed).
	// Logged, never escalated, never block progress.
	ErrArtifactCleanup = errors.New("artifact cleanup error")

	// Catalogue errors.
	ErrRegionNotFound = errors.New("region not found")
)
