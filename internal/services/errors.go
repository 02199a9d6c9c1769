// Package services defines the business logic for natural-language commands,
// config changes, undo, and order queries.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Command-related errors.
var (
	// ErrEmptyCommand is returned when a command request contains no text.
	ErrEmptyCommand = errors.New("command text is empty")

	// ErrIntentNotFound indicates that the referenced intent does not exist or
	// is not accessible to the current tenant.
	ErrIntentNotFound = errors.New("intent not found")

	// ErrIntentNotConfirmable is returned when a confirm request targets an
	// intent that is not waiting for confirmation.
	ErrIntentNotConfirmable = errors.New("intent is not awaiting confirmation")

	// ErrNoReversibleChange indicates that no applied, non-rolled-back change
	// exists for the restaurant, so there is nothing to undo.
	ErrNoReversibleChange = errors.New("no reversible change found")

	// ErrConfigConflict is returned when the latest snapshot advanced between
	// reading the config and committing the change. Callers may retry.
	ErrConfigConflict = errors.New("config snapshot advanced concurrently")

	// ErrUnsupportedIntent is returned when the apply step receives an intent
	// type it has no handler for.
	ErrUnsupportedIntent = errors.New("unsupported intent type")
)
