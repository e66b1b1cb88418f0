package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSourceNotFound = errors.New("data source not found")
	ErrSourceLimit    = errors.New("attaching this source exceeds the subscription tier limit")
	ErrEmptyUpload    = errors.New("upload contains no rows")
	ErrSchemaMissing  = errors.New("schema is required")
)

// DataSourceService manages connected and uploaded datasets.
type DataSourceService struct {
	sources       *repository.DataSourceRepository
	rows          *repository.SourceRowRepository
	conversations *repository.ConversationRepository
	connector     *ConnectorService
	tiers         *TierService
	maxRows       int
	logger        *zap.Logger
}

func NewDataSourceService(
	sources *repository.DataSourceRepository,
	rows *repository.SourceRowRepository,
	conversations *repository.ConversationRepository,
	connector *ConnectorService,
	tiers *TierService,
	maxRows int,
	logger *zap.Logger,
) *DataSourceService {
	return &DataSourceService{
		sources:       sources,
		rows:          rows,
		conversations: conversations,
		connector:     connector,
		tiers:         tiers,
		maxRows:       maxRows,
		logger:        logger,
	}
}

// CreateFileSource stores a pre-parsed upload (rows plus declared
// schema) as a file-type data source.
func (s *DataSourceService) CreateFileSource(ctx context.Context, userID uuid.UUID, name string, schema models.Schema, rows []map[string]any) (*models.DataSource, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(schema) == 0 {
		return nil, ErrSchemaMissing
	}

	now := time.Now()
	src := &models.DataSource{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Type:      models.SourceTypeFile,
		Schema:    schema,
		RowCount:  int64(len(rows)),
		Status:    models.SourceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sources.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}
	if err := s.rows.BulkInsert(ctx, src.ID, rows); err != nil {
		return nil, fmt.Errorf("failed to store rows: %w", err)
	}

	s.logger.Info("File data source created",
		zap.String("source_id", src.ID.String()),
		zap.String("name", name),
		zap.Int("rows", len(rows)),
	)

	return src, nil
}

// ConnectDatabaseSource registers a live database as a data source.
// The credential must fail the write probe before it is accepted.
func (s *DataSourceService) ConnectDatabaseSource(ctx context.Context, userID uuid.UUID, name string, conn models.DatabaseConnection, schema models.Schema, rowCount int64) (*models.DataSource, error) {
	if len(schema) == 0 {
		return nil, ErrSchemaMissing
	}

	if err := s.connector.VerifyReadOnly(ctx, conn); err != nil {
		return nil, err
	}

	now := time.Now()
	src := &models.DataSource{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Type:       models.SourceTypeDatabase,
		Schema:     schema,
		Connection: &conn,
		RowCount:   rowCount,
		Status:     models.SourceStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.sources.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}

	s.logger.Info("Database data source connected",
		zap.String("source_id", src.ID.String()),
		zap.String("name", name),
	)

	return src, nil
}

func (s *DataSourceService) ListSources(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error) {
	return s.sources.ListByUserID(ctx, userID)
}

// AttachToConversation links a source to a conversation, enforcing the
// tier's source ceiling. The first attached source becomes primary.
func (s *DataSourceService) AttachToConversation(ctx context.Context, user *models.User, conversationID, sourceID uuid.UUID) error {
	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil || src == nil || src.UserID != user.ID {
		return ErrSourceNotFound
	}

	count, err := s.conversations.CountSources(ctx, conversationID)
	if err != nil {
		return err
	}
	if count >= s.tiers.MaxSourcesForTier(user.Tier) {
		return ErrSourceLimit
	}
	if count >= 1 && !s.tiers.CanUseMultiSource(user.Tier) {
		return ErrSourceLimit
	}

	return s.conversations.AttachSource(ctx, &models.ConversationSource{
		ConversationID: conversationID,
		DataSourceID:   sourceID,
		IsPrimary:      count == 0,
		CreatedAt:      time.Now(),
	})
}
