package dto

type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"max=100"`
	Description string   `json:"description" binding:"max=500"`
	Type        string   `json:"type" binding:"omitempty,oneof=private group"`
	MemberIDs   []string `json:"member_ids"`
}

type UpdateRoomRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"omitempty,oneof=member moderator admin"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=member moderator admin"`
}
