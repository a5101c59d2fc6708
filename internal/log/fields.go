// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Document fields
	FieldSection = "section"
	FieldKey     = "key"
	FieldProfile = "profile"
	FieldLine    = "line"

	// Path fields
	FieldPath   = "path"
	FieldTarget = "target"

	// Network fields
	FieldAddr = "addr"
)
