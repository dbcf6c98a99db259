package broadcast

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
)

// Channel naming. The names are the wire contract clients subscribe with;
// renaming one is a breaking change.
const (
	// Broadcast-wide listing channels.
	ChannelRooms         = "chat-rooms"
	ChannelAdminRooms    = "admin-chat-rooms"
	ChannelUserMessages  = "user-messages"
	ChannelAdminMessages = "admin-messages"

	roomChannelPrefix = "chat-room."
	userChannelPrefix = "user-groups."
)

// RoomChannel is the private, membership-gated channel of a single room.
func RoomChannel(roomID uuid.UUID) string {
	return roomChannelPrefix + roomID.String()
}

// UserChannel notifies one user of membership changes regardless of whether
// they are subscribed to the room itself.
func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// ParseRoomChannel extracts the room ID from a room channel name.
func ParseRoomChannel(channel string) (uuid.UUID, bool) {
	return parseIDChannel(channel, roomChannelPrefix)
}

// ParseUserChannel extracts the user ID from a per-user channel name.
func ParseUserChannel(channel string) (uuid.UUID, bool) {
	return parseIDChannel(channel, userChannelPrefix)
}

func parseIDChannel(channel, prefix string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, prefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, prefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Event names.
const (
	EventMessageSent      = "MessageSent"
	EventMessageUpdated   = "MessageUpdated"
	EventMessageDeleted   = "MessageDeleted"
	EventChatRoomCreated  = "ChatRoomCreated"
	EventChatRoomDeleted  = "ChatRoomDeleted"
	EventUserJoinedGroup  = "user.joined.group"
	EventUserLeftGroup    = "user.left.group"
	EventUserRoleChanged  = "user.role.changed"
	EventGroupInfoUpdated = "group.info.updated"
	EventUserTyping       = "user.typing"
)

// Event is a named, denormalized payload published to a set of channels
// after the underlying write commits.
type Event struct {
	Name      string
	Channels  []string
	Payload   interface{}
	Timestamp time.Time
	// ExcludeSocket skips one client connection on delivery. Only typing
	// events set it; everything else reaches the actor's own connections.
	ExcludeSocket uuid.UUID
}

// Denormalized payload fragments. Clients render these without follow-up
// fetches.

type UserRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func NewUserRef(u *models.User) UserRef {
	if u == nil {
		return UserRef{}
	}
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}

type MessageData struct {
	ID             uuid.UUID              `json:"id"`
	ChatRoomID     uuid.UUID              `json:"chat_room_id"`
	UserID         *uuid.UUID             `json:"user_id"`
	Content        string                 `json:"content"`
	Type           string                 `json:"type"`
	ReplyTo        *MessageData           `json:"reply_to,omitempty"`
	IsEdited       bool                   `json:"is_edited"`
	EditedAt       *time.Time             `json:"edited_at,omitempty"`
	IsDeleted      bool                   `json:"is_deleted"`
	IsSystem       bool                   `json:"is_system"`
	SystemType     string                 `json:"system_type,omitempty"`
	SystemData     map[string]interface{} `json:"system_data,omitempty"`
	AttachmentInfo *models.AttachmentInfo `json:"attachment_info,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	User           *UserRef               `json:"user,omitempty"`
}

type RoomData struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Type              string    `json:"type"`
	IsActive          bool      `json:"is_active"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Creator           *UserRef  `json:"creator,omitempty"`
	Participants      []UserRef `json:"participants"`
	ParticipantsCount int       `json:"participants_count"`
}

type groupRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

func newGroupRef(room *models.ChatRoom) groupRef {
	return groupRef{ID: room.ID, Name: room.Name, Type: room.Type}
}

// Constructors. Each fixes the event's name and channel set so call sites
// cannot diverge from the wire contract.

func NewMessageSent(msg MessageData) *Event {
	return messageEvent(EventMessageSent, msg)
}

func NewMessageUpdated(msg MessageData) *Event {
	return messageEvent(EventMessageUpdated, msg)
}

func NewMessageDeleted(msg MessageData) *Event {
	return messageEvent(EventMessageDeleted, msg)
}

func messageEvent(name string, msg MessageData) *Event {
	return &Event{
		Name: name,
		Channels: []string{
			RoomChannel(msg.ChatRoomID),
			ChannelUserMessages,
			ChannelAdminMessages,
		},
		Payload: map[string]interface{}{
			"message":      msg,
			"chat_room_id": msg.ChatRoomID,
		},
		Timestamp: time.Now(),
	}
}

func NewChatRoomCreated(room RoomData) *Event {
	return &Event{
		Name:      EventChatRoomCreated,
		Channels:  []string{ChannelRooms, ChannelAdminRooms},
		Payload:   map[string]interface{}{"chatRoom": room},
		Timestamp: time.Now(),
	}
}

func NewChatRoomDeleted(room *models.ChatRoom, deletedBy *models.User) *Event {
	return &Event{
		Name:     EventChatRoomDeleted,
		Channels: []string{RoomChannel(room.ID), ChannelRooms, ChannelAdminRooms},
		Payload: map[string]interface{}{
			"chat_room_id": room.ID,
			"name":         room.Name,
			"type":         room.Type,
			"deleted_by":   NewUserRef(deletedBy),
		},
		Timestamp: time.Now(),
	}
}

func NewUserJoinedGroup(room *models.ChatRoom, member *models.User, role string, addedBy *models.User, reactivated bool) *Event {
	action := "added"
	if reactivated {
		action = "reactivated"
	}
	return &Event{
		Name:     EventUserJoinedGroup,
		Channels: []string{RoomChannel(room.ID), UserChannel(member.ID)},
		Payload: map[string]interface{}{
			"group":    newGroupRef(room),
			"member":   NewUserRef(member),
			"role":     role,
			"action":   action,
			"added_by": NewUserRef(addedBy),
		},
		Timestamp: time.Now(),
	}
}

func NewUserLeftGroup(room *models.ChatRoom, member *models.User, actor *models.User, action string) *Event {
	return &Event{
		Name:     EventUserLeftGroup,
		Channels: []string{RoomChannel(room.ID), UserChannel(member.ID)},
		Payload: map[string]interface{}{
			"group":  newGroupRef(room),
			"member": NewUserRef(member),
			"action": action, // "left" or "removed"
			"by":     NewUserRef(actor),
		},
		Timestamp: time.Now(),
	}
}

func NewUserRoleChanged(room *models.ChatRoom, member *models.User, oldRole, newRole string, changedBy *models.User) *Event {
	return &Event{
		Name:     EventUserRoleChanged,
		Channels: []string{RoomChannel(room.ID), UserChannel(member.ID)},
		Payload: map[string]interface{}{
			"group":      newGroupRef(room),
			"member":     NewUserRef(member),
			"old_role":   oldRole,
			"new_role":   newRole,
			"changed_by": NewUserRef(changedBy),
		},
		Timestamp: time.Now(),
	}
}

func NewGroupInfoUpdated(room *models.ChatRoom, updatedBy *models.User, changes map[string]interface{}) *Event {
	return &Event{
		Name:     EventGroupInfoUpdated,
		Channels: []string{RoomChannel(room.ID)},
		Payload: map[string]interface{}{
			"group": map[string]interface{}{
				"id":          room.ID,
				"name":        room.Name,
				"description": room.Description,
				"avatar_url":  room.AvatarURL,
				"type":        room.Type,
			},
			"changes":    changes,
			"updated_by": NewUserRef(updatedBy),
		},
		Timestamp: time.Now(),
	}
}

// NewUserTyping is the one fire-and-forget event: nothing is persisted, the
// originating socket is excluded, and duplicate or out-of-order delivery is
// acceptable.
func NewUserTyping(roomID uuid.UUID, user *models.User, isTyping bool, excludeSocket uuid.UUID) *Event {
	return &Event{
		Name:     EventUserTyping,
		Channels: []string{RoomChannel(roomID)},
		Payload: map[string]interface{}{
			"chat_room_id": roomID,
			"user":         NewUserRef(user),
			"is_typing":    isTyping,
		},
		Timestamp:     time.Now(),
		ExcludeSocket: excludeSocket,
	}
}
