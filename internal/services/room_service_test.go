package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

type roomFixture struct {
	store   *memStore
	pub     *capturePublisher
	svc     *RoomService
	msgs    *MessageService
	creator *models.User
	member  *models.User
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()

	store := newMemStore()
	pub := &capturePublisher{}
	msgs := NewMessageService(store, pub, testLogger())
	svc := NewRoomService(store, msgs, pub, testLogger())

	return &roomFixture{
		store:   store,
		pub:     pub,
		svc:     svc,
		msgs:    msgs,
		creator: store.addUser("alice"),
		member:  store.addUser("bob"),
	}
}

func (f *roomFixture) newGroup(t *testing.T, members ...uuid.UUID) *models.ChatRoom {
	t.Helper()
	room, created, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Name:      "team",
		Type:      models.RoomTypeGroup,
		MemberIDs: members,
	})
	require.NoError(t, err)
	require.True(t, created)
	return room
}

func TestCreateGroupRoom(t *testing.T) {
	f := newRoomFixture(t)

	room := f.newGroup(t, f.member.ID)
	assert.Equal(t, models.RoomTypeGroup, room.Type)
	assert.Equal(t, f.creator.ID, room.CreatedBy)

	role, err := NewMembership(f.store).RoleOf(room.ID, f.creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleAdmin, role, "creator joins as admin")

	role, err = NewMembership(f.store).RoleOf(room.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleMember, role)

	events := f.pub.named(broadcast.EventChatRoomCreated)
	require.Len(t, events, 1)
	assert.ElementsMatch(t, []string{broadcast.ChannelRooms, broadcast.ChannelAdminRooms}, events[0].Channels)
}

func TestCreatePrivateRoomDedup(t *testing.T) {
	f := newRoomFixture(t)

	first, created, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.member.ID},
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Same pair again, from either side, returns the existing room.
	second, created, err := f.svc.CreateRoom(context.Background(), f.member.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.creator.ID},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreatePrivateRoomDedupIgnoresInactiveRows(t *testing.T) {
	f := newRoomFixture(t)

	first, created, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.member.ID},
	})
	require.NoError(t, err)
	require.True(t, created)

	// Deactivated membership still pins the pair to the existing room.
	f.store.participants[first.ID][f.member.ID].IsActive = false

	second, created, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.member.ID},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreatePrivateRoomDefaultsToCounterpartName(t *testing.T) {
	f := newRoomFixture(t)

	room, created, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.member.ID},
	})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, f.member.Name, room.Name)

	// Both participant rows exist from the start.
	m := NewMembership(f.store)
	role, err := m.RoleOf(room.ID, f.creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleAdmin, role)
	role, err = m.RoleOf(room.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleMember, role)
}

func TestCreatePrivateRoomWithSelfRejected(t *testing.T) {
	f := newRoomFixture(t)

	_, _, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.creator.ID},
	})
	assert.ErrorIs(t, err, apperrors.ErrSelfPrivateChat)
}

func TestAddMemberAlreadyActiveNoop(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)
	f.pub.events = nil

	err := f.svc.AddMember(context.Background(), room.ID, f.creator.ID, f.member.ID, models.ParticipantRoleMember)
	require.NoError(t, err)

	assert.Empty(t, f.pub.events, "re-adding an active member must not publish")

	messages, err := f.store.RoomMessages(room.ID, 50, nil, true)
	require.NoError(t, err)
	assert.Empty(t, messages, "no system message for a no-op add")
}

func TestAddMemberNarratesAndNotifies(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t)
	f.pub.events = nil

	err := f.svc.AddMember(context.Background(), room.ID, f.creator.ID, f.member.ID, models.ParticipantRoleMember)
	require.NoError(t, err)

	joined := f.pub.named(broadcast.EventUserJoinedGroup)
	require.Len(t, joined, 1)
	assert.Contains(t, joined[0].Channels, broadcast.RoomChannel(room.ID))
	assert.Contains(t, joined[0].Channels, broadcast.UserChannel(f.member.ID))
	payload := joined[0].Payload.(map[string]interface{})
	assert.Equal(t, "added", payload["action"])

	messages, err := f.store.RoomMessages(room.ID, 50, nil, true)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsSystem)
	assert.Equal(t, models.SystemUserAdded, messages[0].SystemType)
	assert.Equal(t, "alice added bob", messages[0].Content)
}

func TestAddMemberReactivation(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	require.NoError(t, f.svc.RemoveMember(context.Background(), room.ID, f.creator.ID, f.member.ID))
	f.pub.events = nil

	err := f.svc.AddMember(context.Background(), room.ID, f.creator.ID, f.member.ID, models.ParticipantRoleMember)
	require.NoError(t, err)

	joined := f.pub.named(broadcast.EventUserJoinedGroup)
	require.Len(t, joined, 1)
	payload := joined[0].Payload.(map[string]interface{})
	assert.Equal(t, "reactivated", payload["action"])
}

func TestAddMemberRequiresManagement(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)
	outsider := f.store.addUser("carol")

	err := f.svc.AddMember(context.Background(), room.ID, f.member.ID, outsider.ID, models.ParticipantRoleMember)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)
}

func TestRemoveMemberRules(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	// Creator cannot be removed.
	err := f.svc.RemoveMember(context.Background(), room.ID, f.creator.ID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrSelfRemoval)

	admin := f.store.addUser("dan")
	require.NoError(t, f.svc.AddMember(context.Background(), room.ID, f.creator.ID, admin.ID, models.ParticipantRoleAdmin))
	err = f.svc.RemoveMember(context.Background(), room.ID, admin.ID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrCannotRemoveCreator)

	// Regular removal narrates and notifies.
	f.pub.events = nil
	require.NoError(t, f.svc.RemoveMember(context.Background(), room.ID, f.creator.ID, f.member.ID))

	left := f.pub.named(broadcast.EventUserLeftGroup)
	require.Len(t, left, 1)
	payload := left[0].Payload.(map[string]interface{})
	assert.Equal(t, "removed", payload["action"])

	// Removing again is a quiet no-op.
	f.pub.events = nil
	require.NoError(t, f.svc.RemoveMember(context.Background(), room.ID, f.creator.ID, f.member.ID))
	assert.Empty(t, f.pub.events)
}

func TestLeave(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)
	f.pub.events = nil

	require.NoError(t, f.svc.Leave(context.Background(), room.ID, f.member.ID))

	left := f.pub.named(broadcast.EventUserLeftGroup)
	require.Len(t, left, 1)
	payload := left[0].Payload.(map[string]interface{})
	assert.Equal(t, "left", payload["action"])

	messages, err := f.store.RoomMessages(room.ID, 50, nil, true)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.SystemUserLeft, messages[0].SystemType)
	assert.Equal(t, "bob left the group", messages[0].Content)

	// Leaving twice reports not-a-member.
	err = f.svc.Leave(context.Background(), room.ID, f.member.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAMember)
}

func TestLeaveCreatorRejected(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	err := f.svc.Leave(context.Background(), room.ID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrCreatorCannotLeave)
}

func TestChangeRole(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)
	f.pub.events = nil

	err := f.svc.ChangeRole(context.Background(), room.ID, f.creator.ID, f.member.ID, models.ParticipantRoleModerator)
	require.NoError(t, err)

	role, err := NewMembership(f.store).RoleOf(room.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleModerator, role)

	changed := f.pub.named(broadcast.EventUserRoleChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(map[string]interface{})
	assert.Equal(t, models.ParticipantRoleMember, payload["old_role"])
	assert.Equal(t, models.ParticipantRoleModerator, payload["new_role"])
}

func TestChangeRoleRestrictions(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	mod := f.store.addUser("erin")
	require.NoError(t, f.svc.AddMember(context.Background(), room.ID, f.creator.ID, mod.ID, models.ParticipantRoleModerator))

	// A moderator may not change roles.
	err := f.svc.ChangeRole(context.Background(), room.ID, mod.ID, f.member.ID, models.ParticipantRoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	// Nobody may change the creator's role.
	admin := f.store.addUser("frank")
	require.NoError(t, f.svc.AddMember(context.Background(), room.ID, f.creator.ID, admin.ID, models.ParticipantRoleAdmin))
	err = f.svc.ChangeRole(context.Background(), room.ID, admin.ID, f.creator.ID, models.ParticipantRoleMember)
	assert.ErrorIs(t, err, apperrors.ErrCannotDemoteCreator)
}

func TestDeleteRoomCreatorOnly(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	err := f.svc.DeleteRoom(context.Background(), room.ID, f.member.ID)
	assert.ErrorIs(t, err, apperrors.ErrOnlyCreator)

	f.pub.events = nil
	require.NoError(t, f.svc.DeleteRoom(context.Background(), room.ID, f.creator.ID))

	deleted := f.pub.named(broadcast.EventChatRoomDeleted)
	require.Len(t, deleted, 1)
	assert.Contains(t, deleted[0].Channels, broadcast.RoomChannel(room.ID))
	assert.Contains(t, deleted[0].Channels, broadcast.ChannelRooms)

	got, err := f.store.GetRoom(room.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted room disappears from scoped reads")
}

func TestUpdateRoomOnGroupOnly(t *testing.T) {
	f := newRoomFixture(t)

	private, _, err := f.svc.CreateRoom(context.Background(), f.creator.ID, CreateRoomInput{
		Type:      models.RoomTypePrivate,
		MemberIDs: []uuid.UUID{f.member.ID},
	})
	require.NoError(t, err)

	name := "renamed"
	_, err = f.svc.UpdateRoom(context.Background(), private.ID, f.creator.ID, UpdateRoomInput{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotGroupRoom)
}

func TestGetRoomParticipantOnly(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	_, _, err := f.svc.GetRoom(room.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	got, participants, err := f.svc.GetRoom(room.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Len(t, participants, 2)
}

func TestListRoomsPreview(t *testing.T) {
	f := newRoomFixture(t)
	room := f.newGroup(t, f.member.ID)

	msg, err := f.msgs.Send(context.Background(), room.ID, f.member.ID, SendMessageInput{Content: "latest"})
	require.NoError(t, err)

	views, err := f.svc.ListRooms(f.creator.ID, RoomFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].LatestMessage)
	assert.Equal(t, msg.ID, views[0].LatestMessage.ID)
	assert.EqualValues(t, 2, views[0].ParticipantsCount)
}
