package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/pkg/apperrors"
)

func TestAdminRestoreMessage(t *testing.T) {
	f := newMessageFixture(t)
	admin := NewAdminService(f.store, f.pub, testLogger())
	moderator := f.store.addAdminUser("root")

	msg, err := f.svc.Send(context.Background(), f.room.ID, f.member.ID, SendMessageInput{Content: "oops"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), f.room.ID, msg.ID, f.member.ID))
	f.pub.events = nil

	restored, err := admin.RestoreMessage(context.Background(), f.room.ID, msg.ID, moderator.ID)
	require.NoError(t, err)
	assert.Equal(t, "oops", restored.Content)
	assert.False(t, restored.IsDeleted())

	require.Len(t, f.pub.named(broadcast.EventMessageUpdated), 1)

	// Restoring an already-live message is a no-op.
	_, err = admin.RestoreMessage(context.Background(), f.room.ID, msg.ID, moderator.ID)
	require.NoError(t, err)
}

func TestAdminDeleteMessage(t *testing.T) {
	f := newMessageFixture(t)
	admin := NewAdminService(f.store, f.pub, testLogger())
	moderator := f.store.addAdminUser("root")

	msg, err := f.svc.Send(context.Background(), f.room.ID, f.member.ID, SendMessageInput{Content: "spam"})
	require.NoError(t, err)
	f.pub.events = nil

	require.NoError(t, admin.DeleteMessage(context.Background(), f.room.ID, msg.ID, moderator.ID))

	events := f.pub.named(broadcast.EventMessageDeleted)
	require.Len(t, events, 1)
	payload := events[0].Payload.(map[string]interface{})
	data := payload["message"].(broadcast.MessageData)
	assert.Equal(t, DeletedPlaceholder, data.Content)

	err = admin.DeleteMessage(context.Background(), f.room.ID, msg.ID, moderator.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDeleted)
}

func TestAdminForceDeleteRoom(t *testing.T) {
	f := newMessageFixture(t)
	admin := NewAdminService(f.store, f.pub, testLogger())
	moderator := f.store.addAdminUser("root")

	msg, err := f.svc.Send(context.Background(), f.room.ID, f.member.ID, SendMessageInput{Content: "bye"})
	require.NoError(t, err)

	require.NoError(t, admin.ForceDeleteRoom(context.Background(), f.room.ID, moderator.ID))

	room, err := f.store.GetRoomUnscoped(f.room.ID)
	require.NoError(t, err)
	assert.Nil(t, room)

	gone, err := f.store.GetMessageUnscoped(f.room.ID, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "purge removes the room's messages with it")

	err = admin.ForceDeleteRoom(context.Background(), f.room.ID, moderator.ID)
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestAdminRestoreRoom(t *testing.T) {
	f := newMessageFixture(t)
	admin := NewAdminService(f.store, f.pub, testLogger())
	moderator := f.store.addAdminUser("root")

	require.NoError(t, f.store.DeleteRoom(f.room.ID))

	rooms, err := admin.ListRooms(true)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	restored, err := admin.RestoreRoom(context.Background(), f.room.ID, moderator.ID)
	require.NoError(t, err)
	assert.False(t, restored.DeletedAt.Valid)

	live, err := f.store.GetRoom(f.room.ID)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestAdminRoomMessagesIncludeDeletedContent(t *testing.T) {
	f := newMessageFixture(t)
	admin := NewAdminService(f.store, f.pub, testLogger())

	msg, err := f.svc.Send(context.Background(), f.room.ID, f.member.ID, SendMessageInput{Content: "hidden"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), f.room.ID, msg.ID, f.member.ID))

	messages, err := admin.RoomMessages(f.room.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hidden", messages[0].Content, "moderation view keeps original content")
	assert.True(t, messages[0].IsDeleted())
}
