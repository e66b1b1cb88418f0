package handlers

import (
	"errors"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/dto"
	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DataSourceHandler struct {
	sourceService *service.DataSourceService
	authService   *service.AuthService
	logger        *zap.Logger
}

func NewDataSourceHandler(sourceService *service.DataSourceService, authService *service.AuthService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{
		sourceService: sourceService,
		authService:   authService,
		logger:        logger,
	}
}

// UploadSource godoc
// @Summary Create a data source from parsed rows
// @Description Store an uploaded dataset (rows plus declared schema) as a file-type source
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body dto.UploadSourceRequest true "Upload request"
// @Security Bearer
// @Success 201 {object} dto.DataSourceResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/datasources/upload [post]
func (h *DataSourceHandler) UploadSource(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.UploadSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	src, err := h.sourceService.CreateFileSource(c.Context(), userID, req.Name, req.Schema, req.Rows)
	if err != nil {
		if errors.Is(err, service.ErrEmptyUpload) || errors.Is(err, service.ErrSchemaMissing) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to create data source", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create data source"})
	}

	return c.Status(fiber.StatusCreated).JSON(toSourceResponse(src))
}

// ConnectSource godoc
// @Summary Connect a live database as a data source
// @Description Register a database connection after verifying the credential is read-only
// @Tags datasources
// @Accept json
// @Produce json
// @Param request body dto.ConnectSourceRequest true "Connect request"
// @Security Bearer
// @Success 201 {object} dto.DataSourceResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/datasources/connect [post]
func (h *DataSourceHandler) ConnectSource(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.ConnectSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	src, err := h.sourceService.ConnectDatabaseSource(c.Context(), userID, req.Name, req.Connection, req.Schema, req.RowCount)
	if err != nil {
		// The two verification failures carry distinct user-facing messages
		if errors.Is(err, service.ErrWritableCredentials) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": service.ErrWritableCredentials.Error()})
		}
		if errors.Is(err, service.ErrConnectionFailed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.ErrConnectionFailed.Error()})
		}
		if errors.Is(err, service.ErrSchemaMissing) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to connect data source", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to connect data source"})
	}

	return c.Status(fiber.StatusCreated).JSON(toSourceResponse(src))
}

// ListSources godoc
// @Summary List user's data sources
// @Tags datasources
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.DataSourceResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/datasources [get]
func (h *DataSourceHandler) ListSources(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	sources, err := h.sourceService.ListSources(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list data sources", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list data sources"})
	}

	resp := make([]dto.DataSourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, toSourceResponse(src))
	}

	return c.JSON(resp)
}

// AttachSource godoc
// @Summary Attach a data source to a conversation
// @Description Link a source to a conversation, subject to the subscription tier's source limit
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body dto.AttachSourceRequest true "Attach request"
// @Security Bearer
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/conversations/{id}/sources [post]
func (h *DataSourceHandler) AttachSource(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	var req dto.AttachSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sourceID, err := uuid.Parse(req.DataSourceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data source ID"})
	}

	user, err := h.authService.GetUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := h.sourceService.AttachToConversation(c.Context(), user, conversationID, sourceID); err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Data source not found"})
		}
		if errors.Is(err, service.ErrSourceLimit) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to attach data source", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to attach data source"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toSourceResponse(src *models.DataSource) dto.DataSourceResponse {
	return dto.DataSourceResponse{
		ID:        src.ID.String(),
		Name:      src.Name,
		Type:      string(src.Type),
		Schema:    src.Schema,
		RowCount:  src.RowCount,
		Status:    string(src.Status),
		CreatedAt: src.CreatedAt.Format(time.RFC3339),
	}
}
