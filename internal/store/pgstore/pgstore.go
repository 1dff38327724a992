// Package pgstore implements the store contract over Postgres: one JSONB
// documents table, partial merges through the || operator, and realtime
// subscriptions fanned out by an in-process notifier.
package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lberthe/kanbo-api/internal/database"
	"github.com/lberthe/kanbo-api/internal/store"
)

type Store struct {
	db       *database.DB
	notifier *notifier
}

var _ store.Store = (*Store)(nil)

func New(db *database.DB) *Store {
	s := &Store{
		db:       db,
		notifier: newNotifier(db),
	}
	go s.notifier.run()
	return s
}

// Close stops the notifier loop. Pending subscriptions receive no further
// snapshots.
func (s *Store) Close() {
	s.notifier.stop()
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var data []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&data)
	if err != nil {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Data: data}, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields any) (string, error) {
	data, err := store.Marshal(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`, collection, id, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	s.notifier.changed(collection)
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := store.Marshal(fields)
	if err != nil {
		return err
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, jsonb_strip_nulls($3::jsonb))
		ON CONFLICT (collection, id) DO UPDATE SET
			data = jsonb_strip_nulls(documents.data || EXCLUDED.data),
			updated_at = NOW()
	`, collection, id, string(patch))
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}

	s.notifier.changed(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := store.Marshal(fields)
	if err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE documents
		SET data = jsonb_strip_nulls(data || $3::jsonb), updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(patch))
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	s.notifier.changed(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.notifier.changed(collection)
	return nil
}

func (s *Store) Find(ctx context.Context, q store.Query) ([]store.Document, error) {
	return findDocs(ctx, s.db, q)
}

func (s *Store) Subscribe(q store.Query, onSnapshot store.Snapshot, onError store.ErrorHandler) (func(), error) {
	initial, err := findDocs(context.Background(), s.db, q)
	if err != nil {
		return nil, err
	}
	onSnapshot(initial)

	return s.notifier.subscribe(q, onSnapshot, onError), nil
}

func findDocs(ctx context.Context, db *database.DB, q store.Query) ([]store.Document, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// buildQuery compiles filters to JSONB operators. Field names come from
// code, never from callers, so they are interpolated directly.
func buildQuery(q store.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		n := len(args) + 1
		switch f.Op {
		case store.OpEqual:
			fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, f.Field, n)
			args = append(args, textValue(f.Value))
		case store.OpIn:
			list, err := stringList(f.Value)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&sb, ` AND data->>'%s' = ANY($%d)`, f.Field, n)
			args = append(args, list)
		case store.OpArrayContains:
			fmt.Fprintf(&sb, ` AND data->'%s' ? $%d`, f.Field, n)
			args = append(args, textValue(f.Value))
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	sb.WriteString(` ORDER BY created_at`)
	return sb.String(), args, nil
}

func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, elem := range list {
			out[i] = textValue(elem)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("in filter requires a list, got %T", v)
	}
}
