// Package engine implements the session-scoped entity store: realtime
// mirrors of the remote collections scoped to one authenticated user, plus
// every mutation entry point. Mutations never write the mirrors directly;
// they write to the store and rely on the subscription echo.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

const (
	subProjects    = "projects"
	subTickets     = "tickets"
	subTeamGroups  = "teamGroups"
	subUsers       = "users"
	subInvitations = "invitations"
)

type Engine struct {
	store store.Store
	user  auth.UserHandle
	now   func() time.Time

	mu          sync.RWMutex
	projects    []models.Project
	tickets     []models.Ticket
	teamGroups  []models.TeamGroup
	users       []models.User
	invitations []models.Invitation
	loading     bool

	subMu   sync.Mutex
	started bool
	unsubs  map[string]func()
	epochs  map[string]int

	bus *eventBus
}

func New(st store.Store, user auth.UserHandle) *Engine {
	return &Engine{
		store:   st,
		user:    user,
		now:     time.Now,
		loading: true,
		unsubs:  make(map[string]func()),
		epochs:  make(map[string]int),
		bus:     newEventBus(),
	}
}

// Start runs the one-time account migration and establishes the base
// subscriptions. The tickets and users subscriptions are derived from the
// projects mirror and re-established whenever it changes.
func (e *Engine) Start(ctx context.Context) error {
	e.subMu.Lock()
	e.started = true
	e.subMu.Unlock()

	e.migrate(ctx)

	q := store.C(store.CollectionProjects).Where("members", store.OpArrayContains, e.user.ID)
	unsub, err := e.store.Subscribe(q, e.onProjectsSnapshot, e.subscriptionError(subProjects))
	if err != nil {
		return err
	}
	e.keepSubscription(subProjects, unsub)

	// Groups are watched globally: membership in a group can arrive through
	// an invitation before the user is a member of the group's project.
	unsub, err = e.store.Subscribe(store.C(store.CollectionTeamGroups), e.onGroupsSnapshot, e.subscriptionError(subTeamGroups))
	if err != nil {
		return err
	}
	e.keepSubscription(subTeamGroups, unsub)

	if e.user.Email != "" {
		q = store.C(store.CollectionInvitations).Where("email", store.OpEqual, e.user.Email)
		unsub, err = e.store.Subscribe(q, e.onInvitationsSnapshot, e.subscriptionError(subInvitations))
		if err != nil {
			return err
		}
		e.keepSubscription(subInvitations, unsub)
	}

	e.mu.Lock()
	e.loading = false
	e.mu.Unlock()
	return nil
}

// Stop tears every subscription down and empties the mirrors. In-flight
// writes are not aborted.
func (e *Engine) Stop() {
	e.subMu.Lock()
	e.started = false
	unsubs := e.unsubs
	e.unsubs = make(map[string]func())
	e.subMu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	e.mu.Lock()
	e.projects = nil
	e.tickets = nil
	e.teamGroups = nil
	e.users = nil
	e.invitations = nil
	e.mu.Unlock()
}

func (e *Engine) User() auth.UserHandle {
	return e.user
}

func (e *Engine) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

func (e *Engine) Projects() []models.Project {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Project(nil), e.projects...)
}

// Tickets filters out orphans of deleted projects defensively: project
// deletion does not cascade to tickets.
func (e *Engine) Tickets() []models.Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()

	known := make(map[string]bool, len(e.projects))
	for _, p := range e.projects {
		known[p.ID] = true
	}
	var out []models.Ticket
	for _, t := range e.tickets {
		if known[t.ProjectID] {
			out = append(out, t)
		}
	}
	return out
}

func (e *Engine) TeamGroups() []models.TeamGroup {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.TeamGroup(nil), e.teamGroups...)
}

func (e *Engine) ProjectUsers() []models.User {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.User(nil), e.users...)
}

func (e *Engine) Invitations() []models.Invitation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Invitation(nil), e.invitations...)
}

// --- subscription callbacks ---

func (e *Engine) onProjectsSnapshot(docs []store.Document) {
	now := e.now()
	projects := make([]models.Project, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProject(doc, now)
		if err != nil {
			log.Printf("skipping corrupt project %s: %v", doc.ID, err)
			continue
		}
		projects = append(projects, p)
	}

	e.mu.Lock()
	e.projects = projects
	e.mu.Unlock()
	e.bus.publish(Event{Collection: store.CollectionProjects, Data: projects})

	e.refreshDerivedSubscriptions()
}

func (e *Engine) onGroupsSnapshot(docs []store.Document) {
	now := e.now()
	groups := make([]models.TeamGroup, 0, len(docs))
	for _, doc := range docs {
		g, err := decodeGroup(doc, now)
		if err != nil {
			log.Printf("skipping corrupt team group %s: %v", doc.ID, err)
			continue
		}
		groups = append(groups, g)
	}

	e.mu.Lock()
	e.teamGroups = groups
	e.mu.Unlock()
	e.bus.publish(Event{Collection: store.CollectionTeamGroups, Data: groups})

	e.refreshDerivedSubscriptions()
}

func (e *Engine) onInvitationsSnapshot(docs []store.Document) {
	now := e.now()
	invitations := make([]models.Invitation, 0, len(docs))
	for _, doc := range docs {
		inv, err := decodeInvitation(doc, now)
		if err != nil {
			log.Printf("skipping corrupt invitation %s: %v", doc.ID, err)
			continue
		}
		invitations = append(invitations, inv)
	}

	e.mu.Lock()
	e.invitations = invitations
	e.mu.Unlock()
	e.bus.publish(Event{Collection: store.CollectionInvitations, Data: invitations})
}

// refreshDerivedSubscriptions re-establishes the tickets and users
// subscriptions from the current projects mirror. With zero projects there
// is no tickets subscription at all: a fresh account sees an explicit empty
// state, never other tenants' tickets.
func (e *Engine) refreshDerivedSubscriptions() {
	e.mu.RLock()
	projectIDs := make([]string, 0, len(e.projects))
	memberSet := make(map[string]bool)
	for _, p := range e.projects {
		projectIDs = append(projectIDs, p.ID)
		for _, m := range p.Members {
			memberSet[m] = true
		}
	}
	e.mu.RUnlock()

	memberIDs := make([]string, 0, len(memberSet))
	for id := range memberSet {
		memberIDs = append(memberIDs, id)
	}

	if len(projectIDs) == 0 {
		e.dropSubscription(subTickets)
		e.setTickets(nil)
	} else {
		q := store.C(store.CollectionTickets).Where("projectId", store.OpIn, projectIDs)
		e.resubscribe(subTickets, q, e.onTicketsSnapshot)
	}

	if len(memberIDs) == 0 {
		e.dropSubscription(subUsers)
		e.setUsers(nil)
	} else {
		q := store.C(store.CollectionUsers).Where("id", store.OpIn, memberIDs)
		e.resubscribe(subUsers, q, e.onUsersSnapshot)
	}
}

func (e *Engine) onTicketsSnapshot(docs []store.Document) {
	now := e.now()
	tickets := make([]models.Ticket, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTicket(doc, now)
		if err != nil {
			log.Printf("skipping corrupt ticket %s: %v", doc.ID, err)
			continue
		}
		tickets = append(tickets, t)
	}
	e.setTickets(tickets)
}

func (e *Engine) onUsersSnapshot(docs []store.Document) {
	now := e.now()
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc, now)
		if err != nil {
			log.Printf("skipping corrupt user %s: %v", doc.ID, err)
			continue
		}
		users = append(users, u)
	}
	e.setUsers(users)
}

func (e *Engine) setTickets(tickets []models.Ticket) {
	e.mu.Lock()
	e.tickets = tickets
	e.mu.Unlock()
	e.bus.publish(Event{Collection: store.CollectionTickets, Data: tickets})
}

func (e *Engine) setUsers(users []models.User) {
	e.mu.Lock()
	e.users = users
	e.mu.Unlock()
	e.bus.publish(Event{Collection: store.CollectionUsers, Data: users})
}

// --- subscription bookkeeping ---

func (e *Engine) keepSubscription(name string, unsub func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if !e.started {
		unsub()
		return
	}
	if old := e.unsubs[name]; old != nil {
		old()
	}
	e.unsubs[name] = unsub
}

func (e *Engine) dropSubscription(name string) {
	e.subMu.Lock()
	e.epochs[name]++
	unsub := e.unsubs[name]
	delete(e.unsubs, name)
	e.subMu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// resubscribe replaces a derived subscription. Snapshots from a superseded
// subscription are discarded by the epoch check, so a late delivery can
// never clobber the mirror of a newer filter.
func (e *Engine) resubscribe(name string, q store.Query, onSnapshot store.Snapshot) {
	e.subMu.Lock()
	if !e.started {
		e.subMu.Unlock()
		return
	}
	e.epochs[name]++
	epoch := e.epochs[name]
	old := e.unsubs[name]
	delete(e.unsubs, name)
	e.subMu.Unlock()

	if old != nil {
		old()
	}

	guarded := func(docs []store.Document) {
		e.subMu.Lock()
		current := e.epochs[name] == epoch && e.started
		e.subMu.Unlock()
		if current {
			onSnapshot(docs)
		}
	}

	unsub, err := e.store.Subscribe(q, guarded, e.subscriptionError(name))
	if err != nil {
		e.subscriptionError(name)(err)
		return
	}

	e.subMu.Lock()
	if e.epochs[name] == epoch && e.started {
		e.unsubs[name] = unsub
		e.subMu.Unlock()
		return
	}
	e.subMu.Unlock()
	unsub()
}

// subscriptionError classifies transport failures. Connection-class errors
// self-heal through the transport's own retry; the engine never re-issues
// a subscription because of them.
func (e *Engine) subscriptionError(name string) store.ErrorHandler {
	return func(err error) {
		if store.IsConnectionError(err) {
			log.Printf("%s subscription hit a connection error, transport will retry: %v", name, err)
			return
		}
		log.Printf("%s subscription error: %v", name, err)
	}
}

// --- local lookups ---

func (e *Engine) requireUser() error {
	if e.user.ID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (e *Engine) findProject(id string) (models.Project, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, p := range e.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

func (e *Engine) findGroup(id string) (models.TeamGroup, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, g := range e.teamGroups {
		if g.ID == id {
			return g, true
		}
	}
	return models.TeamGroup{}, false
}

func (e *Engine) findInvitation(id string) (models.Invitation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, inv := range e.invitations {
		if inv.ID == id {
			return inv, true
		}
	}
	return models.Invitation{}, false
}

// --- decoding ---

func decodeProject(doc store.Document, now time.Time) (models.Project, error) {
	var p models.Project
	if err := doc.Decode(&p); err != nil {
		return p, err
	}
	p.ID = doc.ID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return p, nil
}

func decodeTicket(doc store.Document, now time.Time) (models.Ticket, error) {
	var t models.Ticket
	if err := doc.Decode(&t); err != nil {
		return t, err
	}
	t.ID = doc.ID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	return t, nil
}

func decodeGroup(doc store.Document, now time.Time) (models.TeamGroup, error) {
	var g models.TeamGroup
	if err := doc.Decode(&g); err != nil {
		return g, err
	}
	g.ID = doc.ID
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	return g, nil
}

func decodeUser(doc store.Document, now time.Time) (models.User, error) {
	var u models.User
	if err := doc.Decode(&u); err != nil {
		return u, err
	}
	u.ID = doc.ID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	return u, nil
}

func decodeInvitation(doc store.Document, now time.Time) (models.Invitation, error) {
	var inv models.Invitation
	if err := doc.Decode(&inv); err != nil {
		return inv, err
	}
	inv.ID = doc.ID
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	return inv, nil
}
