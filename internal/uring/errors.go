package uring

import "errors"

// Error kinds surfaced synchronously by the ring. Kernel syscall failures
// are wrapped around the errno instead ("io_uring_setup: ...",
// "io_uring_submit: ...", "io_uring_wait: ..."). Per-operation kernel
// failures are not errors at all — they arrive as completion records with
// a negative Res that the caller interprets.
var (
	// ErrNotInitialized is returned by any operational method called before
	// Enter or after Exit.
	ErrNotInitialized = errors.New("ring not initialized (call Enter first)")

	// ErrSubmissionQueueFull is returned when every SQE slot is in use.
	// The builder does not retry or block; submit and drain, then re-prep.
	ErrSubmissionQueueFull = errors.New("submission queue is full")

	// ErrNoCompletion reports the defensive invariant violation where the
	// kernel wait returned but the completion queue was empty.
	ErrNoCompletion = errors.New("no completion after wait")

	// ErrInvalidPath is returned for a path containing an embedded null
	// byte, which cannot be represented as a C string.
	ErrInvalidPath = errors.New("path contains a null byte")

	// ErrInvalidAddress is returned when a textual IP address fails to
	// parse for the requested family.
	ErrInvalidAddress = errors.New("invalid address")
)
