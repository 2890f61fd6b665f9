// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit provides the append-only store for inbound request records
// and their outbound invocation records.
//
// The store guarantees read-your-write visibility only: a record is readable
// once the append is acknowledged. It offers no schema, no migrations, and
// no deletes. Concurrent requests never touch the same record, so atomic
// per-record writes are the only synchronization the store needs.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("audit: record not found")

	// ErrAlreadyFinal is returned when finishing an invocation record that
	// has already been finished. Records are updated exactly once.
	ErrAlreadyFinal = errors.New("audit: invocation record already final")
)

// UserRequest is the audit record of one inbound call. Created once before
// dispatch, read-only afterward.
type UserRequest struct {
	Ref        string             `json:"ref"`
	UserID     string             `json:"user_id"`
	Message    string             `json:"message"`
	Action     string             `json:"action"`
	Parameters map[string]*string `json:"parameters"`
	CreatedAt  time.Time          `json:"created_at"`
}

// InvocationRecord is the immutable audit entry for one outbound backend
// call.
//
// Lifecycle: created in pending state (StatusCode 0, Success false) before
// the call is issued, then finished exactly once with the final outcome.
// Never deleted.
type InvocationRecord struct {
	Ref             string          `json:"ref"`
	RequestRef      string          `json:"request_ref"`
	Endpoint        string          `json:"endpoint"`
	Method          string          `json:"method"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	StatusCode      int             `json:"status_code"`
	Success         bool            `json:"success"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// Store is a badger-backed append-only audit store.
//
// Keys:
//
//	req/<request-ref>                      -> UserRequest JSON
//	inv/<request-ref>/<nanos>/<inv-ref>    -> InvocationRecord JSON
//
// The invocation key embeds the creation timestamp so a prefix scan returns
// records in append order.
//
// Thread Safety: Safe for concurrent use (badger transactions).
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) an audit store at the given directory.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audit: opening store at %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory opens an ephemeral in-memory store. Used by tests and by
// deployments that only need the audit trail for the process lifetime.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audit: opening in-memory store: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRequest appends a UserRequest record. Assigns Ref and CreatedAt if
// unset.
func (s *Store) CreateRequest(req *UserRequest) error {
	if req.Ref == "" {
		req.Ref = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("audit: marshaling request record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(requestKey(req.Ref), raw)
	})
	if err != nil {
		return fmt.Errorf("audit: writing request record: %w", err)
	}
	s.logger.Debug("audit request recorded",
		slog.String("request_ref", req.Ref),
		slog.String("action", req.Action),
	)
	return nil
}

// GetRequest reads back a UserRequest by ref. Returns ErrNotFound if it does
// not exist.
func (s *Store) GetRequest(ref string) (*UserRequest, error) {
	var req UserRequest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(requestKey(ref))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("audit: reading request record: %w", err)
	}
	return &req, nil
}

// CreateInvocation appends an InvocationRecord in pending state. Assigns Ref
// and CreatedAt if unset; forces StatusCode 0 and Success false.
func (s *Store) CreateInvocation(rec *InvocationRecord) error {
	if rec.Ref == "" {
		rec.Ref = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.StatusCode = 0
	rec.Success = false
	rec.CompletedAt = nil

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshaling invocation record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(invocationKey(rec), raw)
	})
	if err != nil {
		return fmt.Errorf("audit: writing invocation record: %w", err)
	}
	return nil
}

// FinishInvocation writes the final outcome of an invocation record.
//
// Description:
//
//	Updates the record exactly once: a second call returns ErrAlreadyFinal.
//	After this returns the record is considered durable and immutable.
func (s *Store) FinishInvocation(rec *InvocationRecord, statusCode int, success bool, responsePayload json.RawMessage) error {
	if rec.CompletedAt != nil {
		return ErrAlreadyFinal
	}
	now := time.Now().UTC()
	rec.StatusCode = statusCode
	rec.Success = success
	rec.ResponsePayload = responsePayload
	rec.CompletedAt = &now

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshaling invocation record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(invocationKey(rec), raw)
	})
	if err != nil {
		return fmt.Errorf("audit: finishing invocation record: %w", err)
	}
	s.logger.Debug("audit invocation finished",
		slog.String("request_ref", rec.RequestRef),
		slog.String("endpoint", rec.Endpoint),
		slog.Int("status_code", statusCode),
		slog.Bool("success", success),
	)
	return nil
}

// ListInvocations returns all invocation records for a request ref in append
// order. Returns an empty slice (not nil) when there are none.
func (s *Store) ListInvocations(requestRef string) ([]*InvocationRecord, error) {
	records := make([]*InvocationRecord, 0)
	prefix := []byte(fmt.Sprintf("inv/%s/", requestRef))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec InvocationRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: listing invocation records: %w", err)
	}
	return records, nil
}

func requestKey(ref string) []byte {
	return []byte("req/" + ref)
}

func invocationKey(rec *InvocationRecord) []byte {
	// Zero-padded nanos keep lexicographic order equal to append order.
	return []byte(fmt.Sprintf("inv/%s/%020d/%s", rec.RequestRef, rec.CreatedAt.UnixNano(), rec.Ref))
}
