// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import "fmt"

// UnsupportedMethodError indicates a dispatch-table programmer error: the
// backend client was asked to use an HTTP method outside {GET, POST, PUT}.
// It is returned before any network I/O and before any audit record is
// created.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("backend: unsupported HTTP method %q", e.Method)
}

// UpstreamStatusError indicates the backend returned a non-2xx status.
// Never retried by the backend client.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("backend: upstream returned status %d", e.StatusCode)
}

// TransportError indicates a network-level failure (timeout, connection
// refused, DNS, unreadable body). Recorded in the audit trail with status
// code 500.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
