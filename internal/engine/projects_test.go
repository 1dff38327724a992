package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
	"github.com/lberthe/kanbo-api/internal/store/memstore"
)

func TestCreateProject_WithLinkedGroup(t *testing.T) {
	st := memstore.New()
	user := seedUser(t, st, "u1", "u1@example.com", "User One")
	eng := startEngine(t, st, user)

	groupID, err := eng.CreateTeamGroup(context.Background(), "Guild", "", "#00ff00", "")
	require.NoError(t, err)
	require.NoError(t, eng.RemoveUserFromGroup(context.Background(), groupID, "u1"))

	projectID, err := eng.CreateProject(context.Background(), "Alpha", "", groupID)
	require.NoError(t, err)

	projects := eng.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, projectID, projects[0].ID)
	assert.Equal(t, []string{groupID}, projects[0].TeamGroups)

	// Creating with a group pulls the creator back into it.
	groups := eng.TeamGroups()
	require.Len(t, groups, 1)
	assert.Contains(t, groups[0].Members, "u1")
}

func TestUpdateProject_StampsUpdatedAt(t *testing.T) {
	st := memstore.New()
	user := seedUser(t, st, "u1", "u1@example.com", "User One")
	eng := startEngine(t, st, user)

	projectID, err := eng.CreateProject(context.Background(), "Alpha", "", "")
	require.NoError(t, err)
	require.Nil(t, eng.Projects()[0].UpdatedAt)

	require.NoError(t, eng.UpdateProject(context.Background(), projectID, map[string]any{
		"name": "Alpha 2",
	}))

	p := eng.Projects()[0]
	assert.Equal(t, "Alpha 2", p.Name)
	require.NotNil(t, p.UpdatedAt)
}

func TestArchiveAndRestoreProject(t *testing.T) {
	st := memstore.New()
	user := seedUser(t, st, "u1", "u1@example.com", "User One")
	eng := startEngine(t, st, user)

	projectID, err := eng.CreateProject(context.Background(), "Alpha", "", "")
	require.NoError(t, err)

	require.NoError(t, eng.ArchiveProject(context.Background(), projectID))
	assert.True(t, eng.Projects()[0].Archived)

	require.NoError(t, eng.RestoreProject(context.Background(), projectID))
	assert.False(t, eng.Projects()[0].Archived)
}

func TestRemoveUserFromProject_CreatorOnly(t *testing.T) {
	st := memstore.New()
	owner := seedUser(t, st, "owner", "owner@example.com", "Owner")
	member := seedUser(t, st, "member", "member@example.com", "Member")

	ownerEng := startEngine(t, st, owner)
	projectID, err := ownerEng.CreateProject(context.Background(), "Alpha", "", "")
	require.NoError(t, err)
	err = st.Update(context.Background(), store.CollectionProjects, projectID, map[string]any{
		"members": []string{"owner", "member"},
	})
	require.NoError(t, err)

	memberEng := startEngine(t, st, member)
	err = memberEng.RemoveUserFromProject(context.Background(), projectID, "owner")
	assert.ErrorIs(t, err, ErrOnlyAdminsRemoveUsers)

	// An unknown project yields the identical refusal.
	err = memberEng.RemoveUserFromProject(context.Background(), "nope", "owner")
	assert.ErrorIs(t, err, ErrOnlyAdminsRemoveUsers)

	require.NoError(t, ownerEng.RemoveUserFromProject(context.Background(), projectID, "member"))
	assert.Equal(t, []string{"owner"}, ownerEng.Projects()[0].Members)

	// Removing again is a no-op.
	require.NoError(t, ownerEng.RemoveUserFromProject(context.Background(), projectID, "member"))
}

func TestUpdateUserRole_WritesRoleDocument(t *testing.T) {
	st := memstore.New()
	owner := seedUser(t, st, "owner", "owner@example.com", "Owner")
	member := seedUser(t, st, "member", "member@example.com", "Member")

	ownerEng := startEngine(t, st, owner)
	projectID, err := ownerEng.CreateProject(context.Background(), "Alpha", "", "")
	require.NoError(t, err)
	err = st.Update(context.Background(), store.CollectionProjects, projectID, map[string]any{
		"members": []string{"owner", "member"},
	})
	require.NoError(t, err)

	memberEng := startEngine(t, st, member)
	err = memberEng.UpdateUserRole(context.Background(), projectID, "owner", models.RoleMember)
	assert.ErrorIs(t, err, ErrOnlyAdminsUpdateRoles)

	require.NoError(t, ownerEng.UpdateUserRole(context.Background(), projectID, "member", models.RoleAdmin))

	doc, err := st.Get(context.Background(), store.CollectionProjectUsers, projectID+"_member")
	require.NoError(t, err)
	var role struct {
		ProjectID string `json:"projectId"`
		UserID    string `json:"userId"`
		Role      string `json:"role"`
	}
	require.NoError(t, doc.Decode(&role))
	assert.Equal(t, projectID, role.ProjectID)
	assert.Equal(t, "member", role.UserID)
	assert.Equal(t, models.RoleAdmin, role.Role)
}

func TestGetProjectMembers(t *testing.T) {
	st := memstore.New()
	owner := seedUser(t, st, "owner", "owner@example.com", "Owner")
	seedUser(t, st, "member", "member@example.com", "Member")

	eng := startEngine(t, st, owner)
	projectID, err := eng.CreateProject(context.Background(), "Alpha", "", "")
	require.NoError(t, err)
	err = st.Update(context.Background(), store.CollectionProjects, projectID, map[string]any{
		"members": []string{"owner", "member"},
	})
	require.NoError(t, err)

	members, err := eng.GetProjectMembers(projectID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	_, err = eng.GetProjectMembers("nope")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
