package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

func TestAddParticipantLifecycle(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	roomID := uuid.New()
	user := store.addUser("alice")

	result, err := m.AddParticipant(roomID, user.ID, models.ParticipantRoleMember)
	require.NoError(t, err)
	assert.Equal(t, AddResultAdded, result)

	active, err := m.IsParticipant(roomID, user.ID)
	require.NoError(t, err)
	assert.True(t, active)

	// Adding again while active changes nothing.
	result, err = m.AddParticipant(roomID, user.ID, models.ParticipantRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, AddResultAlreadyActive, result)

	role, err := m.RoleOf(roomID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleMember, role, "no-op add must not change the role")
}

func TestAddParticipantReactivatesSameRow(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	user := store.addUser("bob")
	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeGroup, CreatedBy: uuid.New()}

	_, err := m.AddParticipant(room.ID, user.ID, models.ParticipantRoleMember)
	require.NoError(t, err)

	first, err := store.GetParticipant(room.ID, user.ID)
	require.NoError(t, err)

	require.NoError(t, m.RemoveParticipant(room, user.ID))

	p, err := store.GetParticipant(room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.NotNil(t, p.LeftAt)

	result, err := m.AddParticipant(room.ID, user.ID, models.ParticipantRoleModerator)
	require.NoError(t, err)
	assert.Equal(t, AddResultReactivated, result)

	p, err = store.GetParticipant(room.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, p.ID, "re-add must reuse the row, not create a second one")
	assert.True(t, p.IsActive)
	assert.Nil(t, p.LeftAt)
	assert.Equal(t, models.ParticipantRoleModerator, p.Role)
}

func TestAddParticipantRejectsUnknownRole(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	_, err := m.AddParticipant(uuid.New(), uuid.New(), "owner")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRole)
}

func TestRemoveParticipantCreatorProtected(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	creator := store.addUser("carol")
	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeGroup, CreatedBy: creator.ID}

	_, err := m.AddParticipant(room.ID, creator.ID, models.ParticipantRoleAdmin)
	require.NoError(t, err)

	err = m.RemoveParticipant(room, creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrCannotRemoveCreator)

	active, err := m.IsParticipant(room.ID, creator.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRemoveParticipantInactiveIsNoop(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeGroup, CreatedBy: uuid.New()}

	// Never a member at all.
	assert.NoError(t, m.RemoveParticipant(room, uuid.New()))

	// Already left.
	user := store.addUser("dave")
	_, err := m.AddParticipant(room.ID, user.ID, models.ParticipantRoleMember)
	require.NoError(t, err)
	require.NoError(t, m.RemoveParticipant(room, user.ID))

	before, err := store.GetParticipant(room.ID, user.ID)
	require.NoError(t, err)
	leftAt := *before.LeftAt

	time.Sleep(time.Millisecond)
	require.NoError(t, m.RemoveParticipant(room, user.ID))

	after, err := store.GetParticipant(room.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, leftAt, *after.LeftAt, "second remove must not rewrite left_at")
}

func TestCanManage(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	creator := store.addUser("erin")
	admin := store.addUser("frank")
	moderator := store.addUser("grace")
	member := store.addUser("heidi")
	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeGroup, CreatedBy: creator.ID}

	for _, tc := range []struct {
		user *models.User
		role string
	}{
		{creator, models.ParticipantRoleAdmin},
		{admin, models.ParticipantRoleAdmin},
		{moderator, models.ParticipantRoleModerator},
		{member, models.ParticipantRoleMember},
	} {
		_, err := m.AddParticipant(room.ID, tc.user.ID, tc.role)
		require.NoError(t, err)
	}

	check := func(userID uuid.UUID) bool {
		ok, err := m.CanManage(room, userID)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, check(creator.ID))
	assert.True(t, check(admin.ID))
	assert.False(t, check(moderator.ID))
	assert.False(t, check(member.ID))
	assert.False(t, check(uuid.New()))
}

func TestCanManageCreatorWithoutRow(t *testing.T) {
	store := newMemStore()
	m := NewMembership(store)

	creator := store.addUser("ivan")
	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeGroup, CreatedBy: creator.ID}

	ok, err := m.CanManage(room, creator.ID)
	require.NoError(t, err)
	assert.True(t, ok, "creator keeps management rights without a participant row")
}
