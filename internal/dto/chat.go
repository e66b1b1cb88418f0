package dto

type ChatRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
	Message        string `json:"message" validate:"required"`
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
