// Package store defines the document-database contract the rest of the
// application is written against: schemaless JSON documents grouped into
// collections, partial-merge updates, and realtime query subscriptions that
// re-deliver the full matching result set on every relevant change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Collection names shared by the sync engine and the auth layer.
const (
	CollectionUsers         = "users"
	CollectionProjects      = "projects"
	CollectionTickets       = "tickets"
	CollectionTeamGroups    = "teamGroups"
	CollectionInvitations   = "invitations"
	CollectionProjectUsers  = "projectUsers"
	CollectionCredentials   = "credentials"
	CollectionRefreshTokens = "refreshTokens"
)

var ErrNotFound = errors.New("document not found")

// Document is a raw stored record. Data is a JSON object and does not
// contain the id.
type Document struct {
	ID   string
	Data []byte
}

func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

type Op string

const (
	OpEqual         Op = "=="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Query struct {
	Collection string
	Filters    []Filter
}

func C(collection string) Query {
	return Query{Collection: collection}
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot receives the complete current result set of a subscribed query.
type Snapshot func(docs []Document)

// ErrorHandler receives subscription transport errors. The subscription
// itself stays registered; the transport retries delivery on the next change.
type ErrorHandler func(err error)

type Store interface {
	// Get fetches a single document, ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create stores a new document under a generated id and returns the id.
	Create(ctx context.Context, collection string, fields any) (string, error)

	// Set merge-upserts: named fields are written, everything else on an
	// existing document is preserved.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update partially merges into an existing document. A nil value removes
	// the field. ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	Delete(ctx context.Context, collection, id string) error

	Find(ctx context.Context, q Query) ([]Document, error)

	// Subscribe registers a realtime listener. The current result set is
	// delivered immediately, then again after every change that may affect
	// the query. Returns an unsubscribe func.
	Subscribe(q Query, onSnapshot Snapshot, onError ErrorHandler) (func(), error)
}

// IsConnectionError reports whether an error looks like a transient
// transport failure that the underlying store will recover from on its own.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "deadline_exceeded") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network")
}

// Marshal encodes fields into a document body, rejecting non-object values.
func Marshal(fields any) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("document body must be a JSON object")
	}
	return data, nil
}
