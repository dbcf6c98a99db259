package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/pkg/apperrors"
)

// ChannelAuthorizer decides whether a connection may subscribe to a channel.
// Every decision re-checks current state; a user removed from a room is
// denied on their next subscribe no matter what they were granted before.
type ChannelAuthorizer struct {
	store Store
}

func NewChannelAuthorizer(store Store) *ChannelAuthorizer {
	return &ChannelAuthorizer{store: store}
}

func (a *ChannelAuthorizer) Authorize(ctx context.Context, userID uuid.UUID, channel string) error {
	if roomID, ok := broadcast.ParseRoomChannel(channel); ok {
		active, err := NewMembership(a.store).IsParticipant(roomID, userID)
		if err != nil {
			return err
		}
		if !active {
			return apperrors.ErrNotParticipant
		}
		return nil
	}

	if ownerID, ok := broadcast.ParseUserChannel(channel); ok {
		if ownerID != userID {
			return apperrors.Forbidden("cannot listen on another user's channel")
		}
		return nil
	}

	switch channel {
	case broadcast.ChannelRooms, broadcast.ChannelUserMessages:
		// Any authenticated user; payloads are filtered client-side by the
		// rooms they belong to.
		return nil
	case broadcast.ChannelAdminRooms, broadcast.ChannelAdminMessages:
		user, err := a.store.GetUser(userID)
		if err != nil {
			return err
		}
		if user == nil || !user.IsAdmin() {
			return apperrors.Forbidden("admin channel")
		}
		return nil
	}

	return apperrors.Forbidden("unknown channel")
}
