// Package common defines shared constants and sentinel errors used across
// the IronLedger client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Connectivity errors.
	ErrOffline = errors.New("offline")

	// Auth errors.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoRefreshToken = errors.New("no refresh token")
)
