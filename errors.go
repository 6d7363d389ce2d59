package storyassist

import "errors"

var (
	// ErrInvalidSessionID means the supplied session id is not a well-formed UUID.
	ErrInvalidSessionID = errors.New("storyassist: invalid session id")

	// ErrSessionNotFound means a well-formed session id has no registered session.
	// Lookup is strict: sessions are never created implicitly on a miss.
	ErrSessionNotFound = errors.New("storyassist: session not found")

	// ErrEmptyPrompt means a provider was invoked with an empty prompt.
	ErrEmptyPrompt = errors.New("storyassist: prompt is empty")

	// ErrProviderFailed wraps failures of the completion backend.
	ErrProviderFailed = errors.New("storyassist: provider error")
)
