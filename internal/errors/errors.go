// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. This enables better error categorization, logging,
// and user experience by providing context-aware error information.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// Validation indicates a request was rejected before execution was attempted.
	Validation Kind = "validation"
	// Driver indicates a database driver or connectivity failure during execution.
	Driver Kind = "driver"
	// Tunnel indicates an SSH tunnel could not be established.
	Tunnel Kind = "tunnel"
	// Cancelled indicates an execution was cancelled cooperatively.
	Cancelled Kind = "cancelled"
	// WorkerTransport indicates the worker process channel failed.
	WorkerTransport Kind = "worker_transport"
	// WorkerStartFailed indicates the worker process failed to start.
	WorkerStartFailed Kind = "worker_start_failed"
	// Config indicates a configuration load or save failure.
	Config Kind = "config"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }
