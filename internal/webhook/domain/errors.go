package domain

import "errors"

var (
	ErrInvalidProvider    = errors.New("invalid_provider")
	ErrProviderNotFound   = errors.New("provider_not_found")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrDuplicateEvent     = errors.New("duplicate_event")
	ErrEventNotFound      = errors.New("event_not_found")
	ErrEventNotReplayable = errors.New("event_not_replayable")
	ErrVendorNotFound     = errors.New("vendor_not_found")
)
