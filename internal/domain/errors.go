package domain

import "errors"

// Error classes drive CLI exit codes and fail-closed gates. Wrap with
// fmt.Errorf("...: %w", ErrX) so errors.Is reaches them through the chain.
var (
	// ErrIntegrity marks data-integrity violations (doc_id collisions,
	// manifest/vector mismatches, dimension mismatches). Fatal for the
	// affected phase, never auto-repaired.
	ErrIntegrity = errors.New("integrity violation")

	// ErrTransient marks retryable service failures that exhausted their
	// retry budget (embedding endpoint timeouts, unavailability).
	ErrTransient = errors.New("transient service failure")

	// ErrEligibility marks promotion attempts with unverifiable provenance.
	ErrEligibility = errors.New("promotion eligibility failure")
)
