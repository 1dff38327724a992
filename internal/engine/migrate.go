package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
)

// migrate brings the account's documents up to the current schema version.
// It runs once per version bump, keyed on the user document's schemaVersion
// field, and is best effort: a failure is logged and retried on the next
// session instead of blocking startup.
func (e *Engine) migrate(ctx context.Context) {
	doc, err := e.store.Get(ctx, store.CollectionUsers, e.user.ID)
	if errors.Is(err, store.ErrNotFound) {
		// A missing user document carries no version marker, so the
		// account gets the full migration before the doc is recreated
		// already stamped current.
		if err := e.backfillInvitedEmails(ctx); err != nil {
			log.Printf("schema migration for user %s will retry next session: %v", e.user.ID, err)
			return
		}
		e.createUserDoc(ctx)
		return
	}
	if err != nil {
		log.Printf("schema migration skipped for user %s: %v", e.user.ID, err)
		return
	}

	var u struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := doc.Decode(&u); err != nil {
		log.Printf("schema migration skipped for user %s: %v", e.user.ID, err)
		return
	}
	if u.SchemaVersion >= models.CurrentSchemaVersion {
		return
	}

	if err := e.backfillInvitedEmails(ctx); err != nil {
		log.Printf("schema migration for user %s will retry next session: %v", e.user.ID, err)
		return
	}

	err = e.store.Set(ctx, store.CollectionUsers, e.user.ID, map[string]any{
		"schemaVersion": models.CurrentSchemaVersion,
	})
	if err != nil {
		log.Printf("schema migration for user %s will retry next session: %v", e.user.ID, err)
	}
}

// createUserDoc repairs accounts whose user document went missing, an
// artifact of early sign-up flows that only wrote credentials.
func (e *Engine) createUserDoc(ctx context.Context) {
	now := e.now().UTC()
	err := e.store.Set(ctx, store.CollectionUsers, e.user.ID, map[string]any{
		"id":            e.user.ID,
		"email":         e.user.Email,
		"displayName":   e.user.DisplayName,
		"role":          models.RoleMember,
		"preferences":   models.DefaultPreferences(),
		"schemaVersion": models.CurrentSchemaVersion,
		"createdAt":     now,
		"lastLoginAt":   now,
	})
	if err != nil {
		log.Printf("could not recreate user document %s: %v", e.user.ID, err)
	}
}

// backfillInvitedEmails stamps an empty invitedEmails list on the user's
// projects and groups that predate the invitation workflow. Documents are
// inspected as raw maps: a missing key and an empty list are distinct here.
func (e *Engine) backfillInvitedEmails(ctx context.Context) error {
	q := store.C(store.CollectionProjects).Where("members", store.OpArrayContains, e.user.ID)
	docs, err := e.store.Find(ctx, q)
	if err != nil {
		return err
	}
	if err := e.backfillField(ctx, store.CollectionProjects, docs); err != nil {
		return err
	}

	q = store.C(store.CollectionTeamGroups).Where("members", store.OpArrayContains, e.user.ID)
	docs, err = e.store.Find(ctx, q)
	if err != nil {
		return err
	}
	return e.backfillField(ctx, store.CollectionTeamGroups, docs)
}

func (e *Engine) backfillField(ctx context.Context, collection string, docs []store.Document) error {
	for _, doc := range docs {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(doc.Data, &raw); err != nil {
			log.Printf("skipping corrupt %s document %s during migration: %v", collection, doc.ID, err)
			continue
		}
		if _, ok := raw["invitedEmails"]; ok {
			continue
		}
		err := e.store.Update(ctx, collection, doc.ID, map[string]any{
			"invitedEmails": []string{},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
