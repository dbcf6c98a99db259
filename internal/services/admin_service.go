package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/broadcast"
	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

// AdminService is the moderation surface. Callers are already verified as
// platform admins by middleware; these operations bypass room membership.
type AdminService struct {
	store     Store
	publisher broadcast.Publisher
	logger    *slog.Logger
}

func NewAdminService(store Store, publisher broadcast.Publisher, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, publisher: publisher, logger: logger}
}

// ListRooms returns every room including soft-deleted ones, or only the
// deleted ones when onlyDeleted is set.
func (s *AdminService) ListRooms(onlyDeleted bool) ([]models.ChatRoom, error) {
	return s.store.RoomsUnscoped(onlyDeleted)
}

// RestoreRoom undoes a soft delete.
func (s *AdminService) RestoreRoom(ctx context.Context, roomID, adminID uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.store.GetRoomUnscoped(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	if !room.DeletedAt.Valid {
		return room, nil
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.RestoreRoom(roomID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID:   adminID,
			Action:   "admin_room_restored",
			Metadata: models.JSONMap{"chat_room_id": roomID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	room.DeletedAt.Valid = false
	return room, nil
}

// ForceDeleteRoom permanently removes a room with its messages and
// participant rows. There is no undo.
func (s *AdminService) ForceDeleteRoom(ctx context.Context, roomID, adminID uuid.UUID) error {
	room, err := s.store.GetRoomUnscoped(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperrors.ErrRoomNotFound
	}

	return s.store.WithTx(func(tx Store) error {
		if err := tx.ForceDeleteRoom(roomID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: adminID,
			Action: "admin_room_force_deleted",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"name":         room.Name,
			},
		})
	})
}

// RoomMessages returns a room's timeline for moderation, soft-deleted rows
// included with their original content intact.
func (s *AdminService) RoomMessages(roomID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	room, err := s.store.GetRoomUnscoped(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.RoomMessages(roomID, limit, before, true)
}

// DeleteMessage soft-deletes any message regardless of sender.
func (s *AdminService) DeleteMessage(ctx context.Context, roomID, messageID, adminID uuid.UUID) error {
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

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.DeleteMessage(messageID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: adminID,
			Action: "admin_message_deleted",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   messageID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, broadcast.NewMessageDeleted(broadcast.MessageData{
		ID:         messageID,
		ChatRoomID: roomID,
		UserID:     msg.UserID,
		Content:    DeletedPlaceholder,
		Type:       msg.Type,
		IsDeleted:  true,
		CreatedAt:  msg.CreatedAt,
	}))
	return nil
}

// RestoreMessage undoes a soft delete and re-announces the message.
func (s *AdminService) RestoreMessage(ctx context.Context, roomID, messageID, adminID uuid.UUID) (*models.Message, error) {
	msg, err := s.store.GetMessageUnscoped(roomID, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperrors.ErrMessageNotFound
	}
	if !msg.IsDeleted() {
		return msg, nil
	}

	err = s.store.WithTx(func(tx Store) error {
		if err := tx.RestoreMessage(messageID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: adminID,
			Action: "admin_message_restored",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   messageID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	restored, err := s.store.GetMessage(roomID, messageID)
	if err != nil {
		return nil, err
	}
	if restored != nil {
		msg = restored
		data := broadcast.MessageData{
			ID:             msg.ID,
			ChatRoomID:     msg.ChatRoomID,
			UserID:         msg.UserID,
			Content:        msg.Content,
			Type:           msg.Type,
			IsEdited:       msg.IsEdited,
			EditedAt:       msg.EditedAt,
			AttachmentInfo: msg.AttachmentInfo,
			CreatedAt:      msg.CreatedAt,
		}
		if msg.User != nil {
			ref := broadcast.NewUserRef(msg.User)
			data.User = &ref
		}
		s.publish(ctx, broadcast.NewMessageUpdated(data))
	}
	return msg, nil
}

// ForceDeleteMessage permanently removes a message row.
func (s *AdminService) ForceDeleteMessage(ctx context.Context, roomID, messageID, adminID uuid.UUID) error {
	msg, err := s.store.GetMessageUnscoped(roomID, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.ErrMessageNotFound
	}

	return s.store.WithTx(func(tx Store) error {
		if err := tx.ForceDeleteMessage(messageID); err != nil {
			return err
		}
		return tx.AppendActivity(&models.ActivityLog{
			UserID: adminID,
			Action: "admin_message_force_deleted",
			Metadata: models.JSONMap{
				"chat_room_id": roomID.String(),
				"message_id":   messageID.String(),
			},
		})
	})
}

// RecentActivity returns the newest audit entries.
func (s *AdminService) RecentActivity(limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.RecentActivity(limit)
}

func (s *AdminService) publish(ctx context.Context, event *broadcast.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed", "event", event.Name, "error", err)
	}
}
