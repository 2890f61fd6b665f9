// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package files

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the files endpoints on the given router group.
// Object routes use a catch-all segment because object names may contain
// slashes; the signed-URL route lives under /url for the same reason.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	f := rg.Group("/files")
	f.GET("/health", h.HandleHealth)
	f.GET("/buckets", h.HandleListBuckets)
	f.POST("/buckets", h.HandleCreateBucket)
	f.GET("/buckets/:bucket/objects", h.HandleListObjects)
	f.POST("/buckets/:bucket/objects", h.HandleUpload)
	f.GET("/buckets/:bucket/objects/*object", h.HandleDownload)
	f.DELETE("/buckets/:bucket/objects/*object", h.HandleDelete)
	f.GET("/buckets/:bucket/url/*object", h.HandleSignedURL)
}
