// Package memstore is an in-memory implementation of the store contract.
// Snapshots are delivered synchronously on the writer's goroutine, which
// makes it the store of choice for tests and fixtures.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lberthe/kanbo-api/internal/store"
)

type document struct {
	id   string
	data []byte
	seq  uint64
}

type subscription struct {
	id         int
	query      store.Query
	onSnapshot store.Snapshot
}

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]*document
	subs        map[int]*subscription
	nextSubID   int
	nextSeq     uint64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*document),
		subs:        make(map[int]*subscription),
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: doc.id, Data: append([]byte(nil), doc.data...)}, nil
}

func (s *Store) Create(_ context.Context, collection string, fields any) (string, error) {
	data, err := store.Marshal(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.put(collection, id, data)
	snapshots := s.pendingSnapshots(collection)
	s.mu.Unlock()

	deliver(snapshots)
	return id, nil
}

func (s *Store) Set(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	merged, err := s.merge(collection, id, fields)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.put(collection, id, merged)
	snapshots := s.pendingSnapshots(collection)
	s.mu.Unlock()

	deliver(snapshots)
	return nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	merged, err := s.merge(collection, id, fields)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.put(collection, id, merged)
	snapshots := s.pendingSnapshots(collection)
	s.mu.Unlock()

	deliver(snapshots)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.collections[collection], id)
	snapshots := s.pendingSnapshots(collection)
	s.mu.Unlock()

	deliver(snapshots)
	return nil
}

func (s *Store) Find(_ context.Context, q store.Query) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(q)
}

func (s *Store) Subscribe(q store.Query, onSnapshot store.Snapshot, _ store.ErrorHandler) (func(), error) {
	s.mu.Lock()
	s.nextSubID++
	sub := &subscription{id: s.nextSubID, query: q, onSnapshot: onSnapshot}
	s.subs[sub.id] = sub
	initial, err := s.run(q)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	onSnapshot(initial)

	return func() {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
	}, nil
}

// put stores raw data under the collection, assigning an arrival sequence
// for stable iteration order. Caller holds the lock.
func (s *Store) put(collection, id string, data []byte) {
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]*document)
		s.collections[collection] = docs
	}
	seq := s.nextSeq
	if existing, ok := docs[id]; ok {
		seq = existing.seq
	} else {
		s.nextSeq++
	}
	docs[id] = &document{id: id, data: data, seq: seq}
}

func (s *Store) merge(collection, id string, fields map[string]any) ([]byte, error) {
	current := map[string]any{}
	if doc, ok := s.collections[collection][id]; ok {
		if err := json.Unmarshal(doc.data, &current); err != nil {
			return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
		}
	}
	for k, v := range fields {
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}
	return json.Marshal(current)
}

func (s *Store) run(q store.Query) ([]store.Document, error) {
	var matched []*document
	for _, doc := range s.collections[q.Collection] {
		ok, err := matches(doc.data, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]store.Document, len(matched))
	for i, doc := range matched {
		out[i] = store.Document{ID: doc.id, Data: append([]byte(nil), doc.data...)}
	}
	return out, nil
}

type pendingSnapshot struct {
	fn   store.Snapshot
	docs []store.Document
}

// pendingSnapshots computes the post-change result set for every
// subscription on the collection. Caller holds the lock; delivery happens
// after release so callbacks may subscribe or unsubscribe freely.
func (s *Store) pendingSnapshots(collection string) []pendingSnapshot {
	var pending []pendingSnapshot
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.query.Collection == collection {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, sub := range subs {
		docs, err := s.run(sub.query)
		if err != nil {
			continue
		}
		pending = append(pending, pendingSnapshot{fn: sub.onSnapshot, docs: docs})
	}
	return pending
}

func deliver(pending []pendingSnapshot) {
	for _, p := range pending {
		p.fn(p.docs)
	}
}

func matches(data []byte, filters []store.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, err
	}
	for _, f := range filters {
		switch f.Op {
		case store.OpEqual:
			if !jsonEqual(doc[f.Field], f.Value) {
				return false, nil
			}
		case store.OpIn:
			if !containsValue(f.Value, doc[f.Field]) {
				return false, nil
			}
		case store.OpArrayContains:
			arr, ok := doc[f.Field].([]any)
			if !ok {
				return false, nil
			}
			found := false
			for _, elem := range arr {
				if jsonEqual(elem, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return true, nil
}

// jsonEqual compares two values through a JSON round-trip so typed filter
// values compare equal to their decoded document counterparts.
func jsonEqual(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}

func containsValue(candidates any, value any) bool {
	switch list := candidates.(type) {
	case []string:
		for _, c := range list {
			if jsonEqual(c, value) {
				return true
			}
		}
	case []any:
		for _, c := range list {
			if jsonEqual(c, value) {
				return true
			}
		}
	}
	return false
}
