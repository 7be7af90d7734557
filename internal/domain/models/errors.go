package models

import "errors"

// Error kinds shared by the ensemble pipeline. Wrap them with %w and test with errors.Is.
var (
	// ErrUpstreamUnavailable covers transport failures, timeouts and non-2xx replies from the live path.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedUpstream is returned when a live reply does not match the EnsembleResult contract.
	ErrMalformedUpstream = errors.New("malformed upstream response")

	// ErrInvariantViolation marks a defect in ensemble arithmetic or its inputs.
	// It is never absorbed by the synthetic fallback.
	ErrInvariantViolation = errors.New("ensemble invariant violation")

	// ErrInvalidRequest is returned before any network attempt for a bad symbol or price.
	ErrInvalidRequest = errors.New("invalid prediction request")
)
