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

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
)

// CallerContext is advisory routing context extracted from a bearer
// credential.
//
// Description:
//
//	The organization id is a best-effort tenant hint used to set the
//	Amp-Organ-Id header on backend calls. It is NOT an authorization
//	decision: the claims are decoded without any signature verification,
//	and real authorization must happen at a trust boundary this gateway
//	does not own.
type CallerContext struct {
	OrganizationID string `json:"organization_id"`
}

// ParseCallerContext extracts a CallerContext from a JWT-shaped credential.
//
// Description:
//
//	Decodes the credential's payload section as a claims map WITHOUT
//	verifying the signature. Extraction never fails the request: on any
//	decode failure, or when the organ_id claim is missing or empty, the
//	configured default organization id is returned instead.
//
// Inputs:
//   - credential: The raw bearer credential (may be empty or malformed).
//   - defaultOrganID: Fallback organization id.
//
// Outputs:
//   - CallerContext: Always valid; degrades to the default on any failure.
func ParseCallerContext(credential, defaultOrganID string) CallerContext {
	claims := decodeUnverifiedClaims(credential)
	organID, _ := claims["organ_id"].(string)
	if organID == "" {
		organID = defaultOrganID
	}
	return CallerContext{OrganizationID: organID}
}

// decodeUnverifiedClaims decodes the payload section of a JWT without
// checking its signature. Returns an empty map on any failure.
func decodeUnverifiedClaims(credential string) map[string]any {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	parts := strings.Split(credential, ".")
	if len(parts) < 2 {
		return map[string]any{}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad the payload segment.
		payload, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			slog.Debug("token: payload is not base64", slog.String("error", err.Error()))
			return map[string]any{}
		}
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		slog.Debug("token: payload is not a JSON object", slog.String("error", err.Error()))
		return map[string]any{}
	}
	return claims
}
