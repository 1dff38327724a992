package pgstore

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/lberthe/kanbo-api/internal/database"
	"github.com/lberthe/kanbo-api/internal/store"
)

type subscription struct {
	id         string
	query      store.Query
	onSnapshot store.Snapshot
	onError    store.ErrorHandler
}

// notifier re-runs subscribed queries whenever a collection changes and
// delivers the fresh result set to each listener. A single goroutine drains
// the change queue, so snapshots for one subscription arrive in order. The
// subscription map is guarded by a mutex rather than owned by the goroutine:
// listeners may subscribe and unsubscribe from inside a snapshot callback.
type notifier struct {
	db      *database.DB
	changes chan string
	done    chan struct{}

	mu   sync.Mutex
	subs map[string]*subscription
}

func newNotifier(db *database.DB) *notifier {
	return &notifier{
		db:      db,
		changes: make(chan string, 256),
		done:    make(chan struct{}),
		subs:    make(map[string]*subscription),
	}
}

func (n *notifier) run() {
	for {
		select {
		case collection := <-n.changes:
			n.notify(collection)
		case <-n.done:
			return
		}
	}
}

func (n *notifier) notify(collection string) {
	n.mu.Lock()
	matched := make([]*subscription, 0, len(n.subs))
	for _, sub := range n.subs {
		if sub.query.Collection == collection {
			matched = append(matched, sub)
		}
	}
	n.mu.Unlock()

	for _, sub := range matched {
		// Skip listeners that unsubscribed while earlier callbacks ran.
		n.mu.Lock()
		_, live := n.subs[sub.id]
		n.mu.Unlock()
		if !live {
			continue
		}

		docs, err := findDocs(context.Background(), n.db, sub.query)
		if err != nil {
			if store.IsConnectionError(err) {
				log.Printf("subscription query on %s failed (transient, will retry on next change): %v", collection, err)
			} else {
				log.Printf("subscription query on %s failed: %v", collection, err)
			}
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.onSnapshot(docs)
	}
}

func (n *notifier) subscribe(q store.Query, onSnapshot store.Snapshot, onError store.ErrorHandler) func() {
	sub := &subscription{
		id:         uuid.NewString(),
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
	}

	n.mu.Lock()
	n.subs[sub.id] = sub
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, sub.id)
		n.mu.Unlock()
	}
}

func (n *notifier) changed(collection string) {
	select {
	case n.changes <- collection:
	case <-n.done:
	}
}

func (n *notifier) stop() {
	close(n.done)
}
