package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

// EditWindow is how long the sender may still edit a message after sending.
const EditWindow = 15 * time.Minute

// DeletedPlaceholder is shown in conversation-list previews and in place of
// removed content.
const DeletedPlaceholder = "Message deleted"

type MessageService struct {
	store     Store
	publisher broadcast.Publisher
	logger    *slog.Logger
}

func NewMessageService(store Store, publisher broadcast.Publisher, logger *slog.Logger) *MessageService {
	return &MessageService{store: store, publisher: publisher, logger: logger}
}

type SendMessageInput struct {
	Content          string
	Type             string
	ReplyToMessageID *uuid.UUID
	Attachments      []models.Attachment
}

// Send validates, persists and broadcasts a new message. The row insert,
// sender read receipt and room touch share one transaction; the event goes
// out only after that commits.
func (s *MessageService) Send(ctx context.Context, roomID, senderID uuid.UUID, in SendMessageInput) (*models.Message, error) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return nil, err
	}

	membership := NewMembership(s.store)
	ok, err := membership.IsParticipant(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	content := in.Content
	if content == "" {
		if len(in.Attachments) == 0 {
			return nil, apperrors.ErrContentRequired
		}
		content = attachmentPlaceholder(len(in.Attachments))
	}

	msgType := in.Type
	if msgType == "" {
		msgType = deriveMessageType(in.Attachments)
	}

	if in.ReplyToMessageID != nil {
		// Covers targets in another room, deleted targets and unknown IDs
		// alike: none of them resolve within this room.
		target, err := s.store.GetMessage(roomID, *in.ReplyToMessageID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, apperrors.ErrReplyNotFound
		}
	}

	msg := &models.Message{
		ChatRoomID:       roomID,
		UserID:           &senderID,
		Content:          content,
		Type:             msgType,
		ReplyToMessageID: in.ReplyToMessageID,
	}
	if len(in.Attachments) > 0 {
		msg.AttachmentInfo = &models.AttachmentInfo{
			Files:      in.Attachments,
			TotalFiles: len(in.Attachments),
		}
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.CreateMessage(msg); err != nil {
			return err
		}
		if err := tx.MarkRead(msg.ID, senderID); err != nil {
			return err
		}
		if err := tx.TouchRoom(roomID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID:      senderID,
			Action:      "message_sent",
			Description: fmt.Sprintf("Sent message in chat room: %s", room.Name),
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   msg.ID.String(),
				"message_type": msgType,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.store.GetMessage(roomID, msg.ID)
	if err == nil && full != nil {
		msg = full
	}

	s.publish(ctx, broadcast.NewMessageSent(s.messageData(msg, false)))
	return msg, nil
}

// Edit replaces a message's content. Only the original sender may edit, and
// only within EditWindow of creation; an expired window is a state error,
// not a permission error.
func (s *MessageService) Edit(ctx context.Context, roomID, messageID, editorID uuid.UUID, content string) (*models.Message, error) {
	if _, err := s.getRoom(roomID); err != nil {
		return nil, err
	}

	msg, err := s.store.GetMessage(roomID, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperrors.ErrMessageNotFound
	}

	if !msg.SentBy(editorID) {
		return nil, apperrors.ErrNotMessageSender
	}
	if time.Since(msg.CreatedAt) > EditWindow {
		return nil, apperrors.ErrEditWindowExpired
	}
	if content == "" {
		return nil, apperrors.ErrContentRequired
	}

	now := time.Now()
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.SaveMessage(msg); err != nil {
			return err
		}
		if err := tx.TouchRoom(roomID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: editorID,
			Action: "message_edited",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   messageID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, broadcast.NewMessageUpdated(s.messageData(msg, false)))
	return msg, nil
}

// Delete soft-deletes a message. The sender may delete their own messages at
// any time; a room admin or the creator may delete anyone's. Deleting an
// already-deleted message is an explicit conflict.
func (s *MessageService) Delete(ctx context.Context, roomID, messageID, actorID uuid.UUID) error {
	room, err := s.getRoom(roomID)
	if err != nil {
		return err
	}

	msg, err := s.store.GetMessageUnscoped(roomID, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.ErrMessageNotFound
	}
	if msg.IsDeleted() {
		return apperrors.ErrAlreadyDeleted
	}

	isSender := msg.SentBy(actorID)
	if !isSender {
		canManage, err := NewMembership(s.store).CanManage(room, actorID)
		if err != nil {
			return err
		}
		if !canManage {
			return apperrors.ErrInsufficientRole
		}
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.DeleteMessage(messageID); err != nil {
			return err
		}
		if err := tx.TouchRoom(roomID); err != nil {
			return err
		}
		action := "message_deleted_self"
		if !isSender {
			action = "message_deleted_admin"
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: actorID,
			Action: action,
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   messageID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	// The payload must not leak removed content to ordinary participants.
	data := s.messageData(msg, false)
	data.Content = DeletedPlaceholder
	data.IsDeleted = true
	data.AttachmentInfo = nil
	s.publish(ctx, broadcast.NewMessageDeleted(data))
	return nil
}

// List returns a page of the room's timeline for a participant, marking the
// fetched messages read. Soft-deleted rows stay in place as placeholders but
// carry no content.
func (s *MessageService) List(roomID, viewerID uuid.UUID, limit int, before *time.Time) ([]broadcast.MessageData, error) {
	if _, err := s.getRoom(roomID); err != nil {
		return nil, err
	}

	ok, err := NewMembership(s.store).IsParticipant(roomID, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	messages, err := s.store.RoomMessages(roomID, limit, before, true)
	if err != nil {
		return nil, err
	}

	out := make([]broadcast.MessageData, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		if !msg.IsDeleted() {
			if err := s.store.MarkRead(msg.ID, viewerID); err != nil {
				return nil, err
			}
		}
		data := s.messageData(msg, false)
		if msg.IsDeleted() {
			data.Content = DeletedPlaceholder
			data.IsDeleted = true
			data.AttachmentInfo = nil
		}
		out = append(out, data)
	}
	return out, nil
}

// MarkRead records a read receipt; repeats are no-ops.
func (s *MessageService) MarkRead(roomID, messageID, userID uuid.UUID) error {
	ok, err := NewMembership(s.store).IsParticipant(roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotParticipant
	}

	msg, err := s.store.GetMessage(roomID, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.ErrMessageNotFound
	}

	return s.store.MarkRead(messageID, userID)
}

type ReadStatus struct {
	MessageID         uuid.UUID           `json:"message_id"`
	ReadCount         int64               `json:"read_count"`
	TotalParticipants int64               `json:"total_participants"`
	ReadBy            []broadcast.UserRef `json:"read_by"`
}

// ReadStatusOf answers "read by N of M participants".
func (s *MessageService) ReadStatusOf(roomID, messageID, viewerID uuid.UUID) (*ReadStatus, error) {
	ok, err := NewMembership(s.store).IsParticipant(roomID, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	msg, err := s.store.GetMessage(roomID, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperrors.ErrMessageNotFound
	}

	count, err := s.store.ReadCount(messageID)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountActiveParticipants(roomID)
	if err != nil {
		return nil, err
	}
	reads, err := s.store.ReadBy(messageID)
	if err != nil {
		return nil, err
	}

	readBy := make([]broadcast.UserRef, 0, len(reads))
	for _, r := range reads {
		readBy = append(readBy, broadcast.NewUserRef(r.User))
	}

	return &ReadStatus{
		MessageID:         messageID,
		ReadCount:         count,
		TotalParticipants: total,
		ReadBy:            readBy,
	}, nil
}

// LatestPreview resolves the room's conversation-list preview. A deleted
// latest message yields a placeholder instead of falling back to an older
// message.
func (s *MessageService) LatestPreview(roomID uuid.UUID) (*broadcast.MessageData, error) {
	msg, err := s.store.LatestMessage(roomID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	data := s.messageData(msg, false)
	if msg.IsDeleted() {
		data.Content = DeletedPlaceholder
		data.IsDeleted = true
		data.AttachmentInfo = nil
	}
	return &data, nil
}

// Typing broadcasts an ephemeral typing indicator. Nothing is stored and the
// originating socket never receives its own event back.
func (s *MessageService) Typing(ctx context.Context, roomID, userID uuid.UUID, isTyping bool, socketID uuid.UUID) error {
	if _, err := s.getRoom(roomID); err != nil {
		return err
	}

	ok, err := NewMembership(s.store).IsParticipant(roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotParticipant
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewUserTyping(roomID, user, isTyping, socketID))
	return nil
}

func (s *MessageService) getRoom(roomID uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (s *MessageService) messageData(msg *models.Message, includeDeletedContent bool) broadcast.MessageData {
	data := broadcast.MessageData{
		ID:             msg.ID,
		ChatRoomID:     msg.ChatRoomID,
		UserID:         msg.UserID,
		Content:        msg.Content,
		Type:           msg.Type,
		IsEdited:       msg.IsEdited,
		EditedAt:       msg.EditedAt,
		IsDeleted:      msg.IsDeleted(),
		IsSystem:       msg.IsSystem,
		SystemType:     msg.SystemType,
		SystemData:     msg.SystemData,
		AttachmentInfo: msg.AttachmentInfo,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.User != nil {
		ref := broadcast.NewUserRef(msg.User)
		data.User = &ref
	}
	if msg.ReplyToMessage != nil {
		reply := s.messageData(msg.ReplyToMessage, includeDeletedContent)
		if reply.IsDeleted && !includeDeletedContent {
			reply.Content = DeletedPlaceholder
			reply.AttachmentInfo = nil
		}
		data.ReplyTo = &reply
	}
	return data
}

// publish is best-effort: a failure is logged, never propagated, and never
// rolls back the committed write it derives from.
func (s *MessageService) publish(ctx context.Context, event *broadcast.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed", "event", event.Name, "error", err)
	}
}

func attachmentPlaceholder(count int) string {
	if count == 1 {
		return "📎 Sent a file"
	}
	return fmt.Sprintf("📎 Sent %d files", count)
}

func deriveMessageType(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return models.MessageTypeText
	}
	switch attachments[0].Category {
	case "image":
		return models.MessageTypeImage
	case "audio":
		return models.MessageTypeAudio
	default:
		return models.MessageTypeFile
	}
}
