package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

type RoomService struct {
	store      Store
	membership *Membership
	messages   *MessageService
	publisher  broadcast.Publisher
	logger     *slog.Logger
}

func NewRoomService(store Store, messages *MessageService, publisher broadcast.Publisher, logger *slog.Logger) *RoomService {
	return &RoomService{
		store:      store,
		membership: NewMembership(store),
		messages:   messages,
		publisher:  publisher,
		logger:     logger,
	}
}

type CreateRoomInput struct {
	Name        string
	Description string
	Type        string
	MemberIDs   []uuid.UUID
}

// CreateRoom creates a group or private room with the creator as its first
// admin participant. For private rooms an existing active room between the
// same pair is returned instead of creating a duplicate; the bool result is
// false in that case.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uuid.UUID, in CreateRoomInput) (*models.ChatRoom, bool, error) {
	creator, err := s.getUser(creatorID)
	if err != nil {
		return nil, false, err
	}

	roomType := in.Type
	if roomType == "" {
		roomType = models.RoomTypeGroup
	}

	if roomType == models.RoomTypePrivate {
		if len(in.MemberIDs) != 1 {
			return nil, false, apperrors.InvalidArg("private chat requires exactly one other member")
		}
		if in.MemberIDs[0] == creatorID {
			return nil, false, apperrors.ErrSelfPrivateChat
		}

		existing, err := s.store.FindPrivateRoomBetween(creatorID, in.MemberIDs[0])
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	for _, id := range in.MemberIDs {
		if _, err := s.getUser(id); err != nil {
			return nil, false, err
		}
	}

	name := in.Name
	if name == "" {
		name = s.defaultRoomName(roomType, in.MemberIDs)
	}

	room := &models.ChatRoom{
		Name:        name,
		Description: in.Description,
		Type:        roomType,
		CreatedBy:   creatorID,
		IsActive:    true,
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.CreateRoom(room); err != nil {
			return err
		}
		m := NewMembership(tx)
		if _, err := m.AddParticipant(room.ID, creatorID, models.ParticipantRoleAdmin); err != nil {
			return err
		}
		for _, id := range in.MemberIDs {
			if id == creatorID {
				continue
			}
			if _, err := m.AddParticipant(room.ID, id, models.ParticipantRoleMember); err != nil {
				return err
			}
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID:      creatorID,
			Action:      "chat_room_created",
			Description: fmt.Sprintf("Created chat room: %s", room.Name),
			Metadata: models.JSONMap{
				"chat_room_id": room.ID.String(),
				"type":         roomType,
			},
		})
	})
	if err != nil {
		return nil, false, err
	}

	data, err := s.roomData(room, creator)
	if err != nil {
		s.logger.Error("room payload build failed", "room_id", room.ID, "error", err)
	} else {
		s.publish(ctx, broadcast.NewChatRoomCreated(data))
	}
	return room, true, nil
}

// RoomView is a conversation-list entry: the room plus the preview fields the
// list renders without further fetches.
type RoomView struct {
	Room              *models.ChatRoom       `json:"room"`
	LatestMessage     *broadcast.MessageData `json:"latest_message,omitempty"`
	ParticipantsCount int64                  `json:"participants_count"`
}

// ListRooms returns the user's active conversations, most recently touched
// first.
func (s *RoomService) ListRooms(userID uuid.UUID, filter RoomFilter) ([]RoomView, error) {
	rooms, err := s.store.RoomsForUser(userID, filter)
	if err != nil {
		return nil, err
	}

	views := make([]RoomView, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		preview, err := s.messages.LatestPreview(room.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.store.CountActiveParticipants(room.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, RoomView{
			Room:              room,
			LatestMessage:     preview,
			ParticipantsCount: count,
		})
	}
	return views, nil
}

// GetRoom returns a room with its active participants. Only participants may
// look inside.
func (s *RoomService) GetRoom(roomID, viewerID uuid.UUID) (*models.ChatRoom, []models.Participant, error) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.membership.IsParticipant(roomID, viewerID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperrors.ErrNotParticipant
	}

	participants, err := s.store.ActiveParticipants(roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, participants, nil
}

type UpdateRoomInput struct {
	Name        *string
	Description *string
}

// UpdateRoom changes a group's name or description. Requires management
// rights; private rooms have no editable info.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID, actorID uuid.UUID, in UpdateRoomInput) (*models.ChatRoom, error) {
	room, actor, err := s.requireManager(roomID, actorID)
	if err != nil {
		return nil, err
	}
	if room.Type != models.RoomTypeGroup {
		return nil, apperrors.ErrNotGroupRoom
	}

	changes := map[string]interface{}{}
	if in.Name != nil && *in.Name != room.Name {
		changes["name"] = *in.Name
		room.Name = *in.Name
	}
	if in.Description != nil && *in.Description != room.Description {
		changes["description"] = *in.Description
		room.Description = *in.Description
	}
	if len(changes) == 0 {
		return room, nil
	}

	if err := s.store.SaveRoom(room); err != nil {
		return nil, err
	}

	s.publish(ctx, broadcast.NewGroupInfoUpdated(room, actor, changes))
	return room, nil
}

// UpdateAvatar sets a group's avatar and narrates the change as a system
// message in the timeline.
func (s *RoomService) UpdateAvatar(ctx context.Context, roomID, actorID uuid.UUID, avatarURL string) (*models.ChatRoom, error) {
	room, actor, err := s.requireManager(roomID, actorID)
	if err != nil {
		return nil, err
	}
	if room.Type != models.RoomTypeGroup {
		return nil, apperrors.ErrNotGroupRoom
	}

	room.AvatarURL = avatarURL

	var sys *models.Message
	err = s.store.WithTx(func(tx Store) error {
		if err := tx.SaveRoom(room); err != nil {
			return err
		}
		sys = systemMessage(room.ID, models.SystemGroupAvatarUpdated,
			fmt.Sprintf("%s updated the group photo", actor.Name),
			models.JSONMap{"user_id": actorID.String(), "avatar_url": avatarURL})
		return tx.CreateMessage(sys)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, broadcast.NewGroupInfoUpdated(room, actor, map[string]interface{}{"avatar_url": avatarURL}))
	s.publishSystemMessage(ctx, sys)
	return room, nil
}

// DeleteRoom soft-deletes a room. Only the creator may do this.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, actorID uuid.UUID) error {
	room, err := s.getRoom(roomID)
	if err != nil {
		return err
	}
	if !room.IsCreator(actorID) {
		return apperrors.ErrOnlyCreator
	}

	actor, err := s.getUser(actorID)
	if err != nil {
		return err
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.DeleteRoom(roomID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID:      actorID,
			Action:      "chat_room_deleted",
			Description: fmt.Sprintf("Deleted chat room: %s", room.Name),
			Metadata:    models.JSONMap{"chat_room_id": roomID.String()},
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewChatRoomDeleted(room, actor))
	return nil
}

// AddMember adds (or re-adds) a user to a group. Adding someone who is
// already active is a benign no-op with no event and no system message.
func (s *RoomService) AddMember(ctx context.Context, roomID, actorID, targetID uuid.UUID, role string) error {
	room, actor, err := s.requireManager(roomID, actorID)
	if err != nil {
		return err
	}
	if room.Type != models.RoomTypeGroup {
		return apperrors.ErrNotGroupRoom
	}

	target, err := s.getUser(targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperrors.ErrUserNotFound
	}

	if role == "" {
		role = models.ParticipantRoleMember
	}

	var result AddResult
	var sys *models.Message
	err = s.store.WithTx(func(tx Store) error {
		result, err = NewMembership(tx).AddParticipant(roomID, targetID, role)
		if err != nil {
			return err
		}
		if result == AddResultAlreadyActive {
			return nil
		}
		verb := "added"
		if result == AddResultReactivated {
			verb = "re-added"
		}
		sys = systemMessage(roomID, models.SystemUserAdded,
			fmt.Sprintf("%s %s %s", actor.Name, verb, target.Name),
			models.JSONMap{
				"added_user_id": targetID.String(),
				"added_by":      actorID.String(),
				"role":          role,
			})
		if err := tx.CreateMessage(sys); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: actorID,
			Action: "member_added",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"user_id":      targetID.String(),
				"role":         role,
			},
		})
	})
	if err != nil {
		return err
	}
	if result == AddResultAlreadyActive {
		return nil
	}

	s.publish(ctx, broadcast.NewUserJoinedGroup(room, target, role, actor, result == AddResultReactivated))
	s.publishSystemMessage(ctx, sys)
	return nil
}

// RemoveMember removes another user from a group. Self-removal goes through
// Leave; the creator is never removable. Removing an inactive target is a
// no-op.
func (s *RoomService) RemoveMember(ctx context.Context, roomID, actorID, targetID uuid.UUID) error {
	room, actor, err := s.requireManager(roomID, actorID)
	if err != nil {
		return err
	}
	if room.Type != models.RoomTypeGroup {
		return apperrors.ErrNotGroupRoom
	}
	if targetID == actorID {
		return apperrors.ErrSelfRemoval
	}
	if room.IsCreator(targetID) {
		return apperrors.ErrCannotRemoveCreator
	}

	target, err := s.getUser(targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperrors.ErrUserNotFound
	}

	wasActive, err := s.membership.IsParticipant(roomID, targetID)
	if err != nil {
		return err
	}
	if !wasActive {
		return nil
	}

	var sys *models.Message
	err = s.store.WithTx(func(tx Store) error {
		if err := NewMembership(tx).RemoveParticipant(room, targetID); err != nil {
			return err
		}
		sys = systemMessage(roomID, models.SystemUserRemoved,
			fmt.Sprintf("%s removed %s", actor.Name, target.Name),
			models.JSONMap{
				"removed_user_id": targetID.String(),
				"removed_by":      actorID.String(),
			})
		if err := tx.CreateMessage(sys); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: actorID,
			Action: "member_removed",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"user_id":      targetID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewUserLeftGroup(room, target, actor, "removed"))
	s.publishSystemMessage(ctx, sys)
	return nil
}

// Leave removes the calling user from a group. The creator cannot leave
// their own room; they delete it instead.
func (s *RoomService) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.getRoom(roomID)
	if err != nil {
		return err
	}
	if room.Type != models.RoomTypeGroup {
		return apperrors.ErrNotGroupRoom
	}
	if room.IsCreator(userID) {
		return apperrors.ErrCreatorCannotLeave
	}

	active, err := s.membership.IsParticipant(roomID, userID)
	if err != nil {
		return err
	}
	if !active {
		return apperrors.ErrNotAMember
	}

	user, err := s.getUser(userID)
	if err != nil {
		return err
	}

	var sys *models.Message
	err = s.store.WithTx(func(tx Store) error {
		if err := NewMembership(tx).RemoveParticipant(room, userID); err != nil {
			return err
		}
		sys = systemMessage(roomID, models.SystemUserLeft,
			fmt.Sprintf("%s left the group", user.Name),
			models.JSONMap{"user_id": userID.String()})
		if err := tx.CreateMessage(sys); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID:   userID,
			Action:   "member_left",
			Metadata: models.JSONMap{"chat_room_id": roomID.String()},
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewUserLeftGroup(room, user, user, "left"))
	s.publishSystemMessage(ctx, sys)
	return nil
}

// ChangeRole updates an active member's role. The creator's role is fixed.
func (s *RoomService) ChangeRole(ctx context.Context, roomID, actorID, targetID uuid.UUID, newRole string) error {
	room, actor, err := s.requireManager(roomID, actorID)
	if err != nil {
		return err
	}
	if room.Type != models.RoomTypeGroup {
		return apperrors.ErrNotGroupRoom
	}
	if !models.ValidParticipantRole(newRole) {
		return apperrors.ErrInvalidRole
	}
	if room.IsCreator(targetID) {
		return apperrors.ErrCannotDemoteCreator
	}

	p, err := s.store.GetParticipant(roomID, targetID)
	if err != nil {
		return err
	}
	if p == nil || !p.IsActive {
		return apperrors.ErrNotAMember
	}

	oldRole := p.Role
	if oldRole == newRole {
		return nil
	}

	target, err := s.getUser(targetID)
	if err != nil {
		return err
	}

	p.Role = newRole
	err = s.store.WithTx(func(tx Store) error {
		if err := tx.SaveParticipant(p); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: actorID,
			Action: "member_role_changed",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"user_id":      targetID.String(),
				"old_role":     oldRole,
				"new_role":     newRole,
			},
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewUserRoleChanged(room, target, oldRole, newRole, actor))
	return nil
}

func (s *RoomService) requireManager(roomID, actorID uuid.UUID) (*models.ChatRoom, *models.User, error) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return nil, nil, err
	}
	ok, err := s.membership.CanManage(room, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperrors.ErrInsufficientRole
	}
	actor, err := s.getUser(actorID)
	if err != nil {
		return nil, nil, err
	}
	return room, actor, nil
}

func (s *RoomService) getRoom(roomID uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) getUser(userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *RoomService) defaultRoomName(roomType string, memberIDs []uuid.UUID) string {
	if roomType == models.RoomTypePrivate && len(memberIDs) == 1 {
		if other, err := s.store.GetUser(memberIDs[0]); err == nil && other != nil {
			return other.Name
		}
		return "Private Chat"
	}
	return "Group Chat"
}

func (s *RoomService) roomData(room *models.ChatRoom, creator *models.User) (broadcast.RoomData, error) {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return broadcast.RoomData{}, err
	}
	refs := make([]broadcast.UserRef, 0, len(participants))
	for _, p := range participants {
		refs = append(refs, broadcast.NewUserRef(p.User))
	}
	creatorRef := broadcast.NewUserRef(creator)
	return broadcast.RoomData{
		ID:                room.ID,
		Name:              room.Name,
		Description:       room.Description,
		Type:              room.Type,
		IsActive:          room.IsActive,
		AvatarURL:         room.AvatarURL,
		CreatedAt:         room.CreatedAt,
		UpdatedAt:         room.UpdatedAt,
		Creator:           &creatorRef,
		Participants:      refs,
		ParticipantsCount: len(refs),
	}, nil
}

func systemMessage(roomID uuid.UUID, systemType, content string, data models.JSONMap) *models.Message {
	return &models.Message{
		ChatRoomID: roomID,
		Content:    content,
		Type:       models.MessageTypeText,
		IsSystem:   true,
		SystemType: systemType,
		SystemData: data,
	}
}

// publishSystemMessage pushes the narration row into the room like any other
// message so clients render it in place.
func (s *RoomService) publishSystemMessage(ctx context.Context, sys *models.Message) {
	if sys == nil {
		return
	}
	s.publish(ctx, broadcast.NewMessageSent(broadcast.MessageData{
		ID:         sys.ID,
		ChatRoomID: sys.ChatRoomID,
		Content:    sys.Content,
		Type:       sys.Type,
		IsSystem:   true,
		SystemType: sys.SystemType,
		SystemData: sys.SystemData,
		CreatedAt:  sys.CreatedAt,
	}))
}

func (s *RoomService) publish(ctx context.Context, event *broadcast.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed", "event", event.Name, "error", err)
	}
}
