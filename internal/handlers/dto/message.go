package dto

type SendMessageRequest struct {
	Content          string `json:"content" form:"content" binding:"max=4000"`
	Type             string `json:"type" form:"type" binding:"omitempty,oneof=text image audio file"`
	ReplyToMessageID string `json:"reply_to_message_id" form:"reply_to_message_id" binding:"omitempty,uuid"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}
