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

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CreateBucketRequest is the body of POST /files/buckets.
type CreateBucketRequest struct {
	BucketName string `json:"bucket_name" binding:"required"`
}

// ErrorResponse is the uniform error body for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers holds the files service HTTP handlers.
type Handlers struct {
	svc            *Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandlers creates the handlers for a storage service instance.
func NewHandlers(svc *Service, cfg *Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, maxUploadBytes: cfg.MaxUploadBytes, logger: logger}
}

// HandleListBuckets handles GET /files/buckets.
func (h *Handlers) HandleListBuckets(c *gin.Context) {
	buckets, err := h.svc.ListBuckets(c.Request.Context())
	if err != nil {
		h.fail(c, err, "listing buckets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// HandleCreateBucket handles POST /files/buckets. Responds 409 when the
// bucket already exists.
func (h *Handlers) HandleCreateBucket(c *gin.Context) {
	var req CreateBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "必须提供存储桶名称",
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	if err := h.svc.CreateBucket(c.Request.Context(), req.BucketName); err != nil {
		if errors.Is(err, ErrBucketExists) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: fmt.Sprintf("存储桶 %s 已存在", req.BucketName),
				Code:  "ALREADY_EXISTS",
			})
			return
		}
		h.fail(c, err, "creating bucket")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("存储桶 %s 创建成功", req.BucketName),
	})
}

// HandleListObjects handles GET /files/buckets/:bucket/objects. The prefix
// query parameter scopes the listing.
func (h *Handlers) HandleListObjects(c *gin.Context) {
	bucket := c.Param("bucket")
	prefix := c.Query("prefix")

	objects, err := h.svc.ListObjects(c.Request.Context(), bucket, prefix)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: fmt.Sprintf("存储桶 %s 不存在", bucket),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.fail(c, err, "listing objects")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bucket":  bucket,
		"prefix":  prefix,
		"objects": objects,
	})
}

// HandleUpload handles POST /files/buckets/:bucket/objects. Multipart form
// with a "file" field; the object name defaults to the uploaded filename.
func (h *Handlers) HandleUpload(c *gin.Context) {
	bucket := c.Param("bucket")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "必须提供上传文件",
			Code:  "VALIDATION_ERROR",
		})
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "文件大小超过限制",
			Code:  "TOO_LARGE",
		})
		return
	}

	objectName := c.PostForm("object_name")
	if objectName == "" {
		objectName = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err, "opening upload")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	written, err := h.svc.Upload(c.Request.Context(), bucket, objectName, contentType, file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: fmt.Sprintf("存储桶 %s 不存在", bucket),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.fail(c, err, "uploading object")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bucket": bucket,
		"object": objectName,
		"size":   written,
	})
}

// HandleDownload handles GET /files/buckets/:bucket/objects/:object. Streams
// the object body with a Content-Disposition attachment header.
func (h *Handlers) HandleDownload(c *gin.Context) {
	bucket := c.Param("bucket")
	object := objectParam(c)

	content, err := h.svc.Download(c.Request.Context(), bucket, object)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: fmt.Sprintf("文件 %s 不存在", object),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.fail(c, err, "downloading object")
		return
	}
	defer content.Reader.Close()

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, content.Size, contentType, content.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", object),
	})
}

// HandleDelete handles DELETE /files/buckets/:bucket/objects/:object.
func (h *Handlers) HandleDelete(c *gin.Context) {
	bucket := c.Param("bucket")
	object := objectParam(c)

	if err := h.svc.Delete(c.Request.Context(), bucket, object); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: fmt.Sprintf("文件 %s 不存在", object),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.fail(c, err, "deleting object")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("文件 %s 已从存储桶 %s 中删除", object, bucket),
	})
}

// HandleSignedURL handles GET /files/buckets/:bucket/url/*object. The
// expires query parameter overrides the default lifetime, in seconds.
func (h *Handlers) HandleSignedURL(c *gin.Context) {
	bucket := c.Param("bucket")
	object := objectParam(c)

	var ttl time.Duration
	if raw := c.Query("expires"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "过期时间参数无效",
				Code:  "VALIDATION_ERROR",
			})
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	url, expires, err := h.svc.SignedURL(bucket, object, ttl)
	if err != nil {
		h.fail(c, err, "signing URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_at": expires.Format(time.RFC3339),
	})
}

// HandleHealth handles GET /health. Probes storage connectivity by listing
// buckets.
func (h *Handlers) HandleHealth(c *gin.Context) {
	if _, err := h.svc.ListBuckets(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// objectParam returns the object name from a catch-all route segment, which
// gin delivers with a leading slash.
func objectParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("object"), "/")
}

// fail logs an internal error and responds 500 without exposing details.
func (h *Handlers) fail(c *gin.Context, err error, op string) {
	h.logger.Error("storage operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "存储服务暂时不可用",
		Code:  "INTERNAL_ERROR",
	})
}
