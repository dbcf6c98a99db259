package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
	"github.com/thereayou/converse/pkg/apperrors"
)

// AddResult tells a caller what AddParticipant actually did.
type AddResult string

const (
	AddResultAdded         AddResult = "added"
	AddResultReactivated   AddResult = "reactivated"
	AddResultAlreadyActive AddResult = "already_active"
)

// Membership is the single authority on who belongs to a room and with what
// role. Every mutating room or message operation goes through it; no handler
// checks membership on its own.
type Membership struct {
	store Store
}

func NewMembership(store Store) *Membership {
	return &Membership{store: store}
}

// IsParticipant reports whether the user has an active membership row.
func (m *Membership) IsParticipant(roomID, userID uuid.UUID) (bool, error) {
	p, err := m.store.GetParticipant(roomID, userID)
	if err != nil {
		return false, err
	}
	return p != nil && p.IsActive, nil
}

// RoleOf returns the active participant's role, or "" for non-participants.
func (m *Membership) RoleOf(roomID, userID uuid.UUID) (string, error) {
	p, err := m.store.GetParticipant(roomID, userID)
	if err != nil {
		return "", err
	}
	if p == nil || !p.IsActive {
		return "", nil
	}
	return p.Role, nil
}

// AddParticipant inserts a membership row, or reactivates the existing one
// when the user previously left. Adding an already-active participant is a
// benign no-op reported as AddResultAlreadyActive.
func (m *Membership) AddParticipant(roomID, userID uuid.UUID, role string) (AddResult, error) {
	if !models.ValidParticipantRole(role) {
		return "", apperrors.ErrInvalidRole
	}

	p, err := m.store.GetParticipant(roomID, userID)
	if err != nil {
		return "", err
	}

	if p == nil {
		p = &models.Participant{
			ChatRoomID: roomID,
			UserID:     userID,
			Role:       role,
			IsActive:   true,
			JoinedAt:   time.Now(),
		}
		if err := m.store.CreateParticipant(p); err != nil {
			return "", err
		}
		return AddResultAdded, nil
	}

	if p.IsActive {
		return AddResultAlreadyActive, nil
	}

	p.IsActive = true
	p.Role = role
	p.JoinedAt = time.Now()
	p.LeftAt = nil
	if err := m.store.SaveParticipant(p); err != nil {
		return "", err
	}
	return AddResultReactivated, nil
}

// RemoveParticipant deactivates a membership. Removing someone who is not an
// active participant is a no-op. The creator's row can never be removed, not
// even by the creator; they delete the room instead.
func (m *Membership) RemoveParticipant(room *models.ChatRoom, userID uuid.UUID) error {
	if room.IsCreator(userID) {
		return apperrors.ErrCannotRemoveCreator
	}

	p, err := m.store.GetParticipant(room.ID, userID)
	if err != nil {
		return err
	}
	if p == nil || !p.IsActive {
		return nil
	}

	now := time.Now()
	p.IsActive = false
	p.LeftAt = &now
	return m.store.SaveParticipant(p)
}

// CanManage reports whether the user holds admin rights over the room: the
// room-admin role, or being the creator. The creator stays privileged even
// if their participant row is tampered with.
func (m *Membership) CanManage(room *models.ChatRoom, userID uuid.UUID) (bool, error) {
	if room.IsCreator(userID) {
		return true, nil
	}
	role, err := m.RoleOf(room.ID, userID)
	if err != nil {
		return false, err
	}
	return role == models.ParticipantRoleAdmin, nil
}
