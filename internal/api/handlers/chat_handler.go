package handlers

import (
	"errors"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/dto"
	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/internal/repository"
	"github.com/DylanFeger/askeuno-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	convRepo    *repository.ConversationRepository
	msgRepo     *repository.MessageRepository
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, convRepo *repository.ConversationRepository, msgRepo *repository.MessageRepository, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		logger:      logger,
	}
}

// Chat godoc
// @Summary Ask a question in a conversation
// @Description Answer a natural-language question from the conversation's attached data sources
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Security Bearer
// @Success 200 {object} service.ChatResult
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	result, err := h.chatService.Ask(c.Context(), userID, conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		case errors.Is(err, service.ErrNoDataSource):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Select a data source before chatting"})
		case errors.Is(err, service.ErrTooManySources):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrQueryLimitReached):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Chat request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to answer the question"})
	}

	return c.JSON(result)
}

// CreateConversation godoc
// @Summary Create a conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body dto.CreateConversationRequest true "Create request"
// @Security Bearer
// @Success 201 {object} dto.ConversationResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/conversations [post]
func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.convRepo.Create(c.Context(), conv); err != nil {
		h.logger.Error("Failed to create conversation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.ConversationResponse{
		ID:        conv.ID.String(),
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt.Format(time.RFC3339),
	})
}

// ListConversations godoc
// @Summary List user's conversations
// @Tags conversations
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {array} dto.ConversationResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/conversations [get]
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	conversations, err := h.convRepo.ListByUserID(c.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list conversations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list conversations"})
	}

	resp := make([]dto.ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp = append(resp, dto.ConversationResponse{
			ID:        conv.ID.String(),
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(resp)
}

// ListMessages godoc
// @Summary List messages in a conversation
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {array} dto.MessageResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	conv, err := h.convRepo.GetByID(c.Context(), conversationID)
	if err != nil || conv.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	messages, err := h.msgRepo.ListByConversation(c.Context(), conversationID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list messages"})
	}

	resp := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, dto.MessageResponse{
			ID:        msg.ID.String(),
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(resp)
}
