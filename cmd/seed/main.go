package main

import (
	"context"
	"log"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/internal/repository"
	"github.com/DylanFeger/askeuno-sub001/pkg/auth"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"
	"github.com/DylanFeger/askeuno-sub001/pkg/logger"
	"github.com/DylanFeger/askeuno-sub001/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Applies the schema and seeds a demo user with two joinable sample
// sources, enough to exercise multi-source chat locally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if _, err := db.Exec(ctx, repository.SchemaSQL); err != nil {
		appLogger.Fatal("Failed to apply schema", zap.Error(err))
	}
	appLogger.Info("Schema applied")

	userRepo := repository.NewUserRepository(db, appLogger)
	sourceRepo := repository.NewDataSourceRepository(db, appLogger)
	rowRepo := repository.NewSourceRowRepository(db, appLogger)

	if existing, _ := userRepo.GetByEmail(ctx, "demo@askeuno.com"); existing != nil {
		appLogger.Info("Demo user already exists, skipping seed")
		return
	}

	hashed, err := auth.HashPassword("demo12345")
	if err != nil {
		appLogger.Fatal("Failed to hash password", zap.Error(err))
	}

	now := time.Now()
	demo := &models.User{
		ID:        uuid.New(),
		Username:  "demo",
		Email:     "demo@askeuno.com",
		Password:  hashed,
		Tier:      models.TierProfessional,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := userRepo.Create(ctx, demo); err != nil {
		appLogger.Fatal("Failed to create demo user", zap.Error(err))
	}

	salesRows := []map[string]any{
		{"user_id": "u-100", "order_date": "2026-01-05", "amount": 129.90, "region": "west"},
		{"user_id": "u-101", "order_date": "2026-01-06", "amount": 49.50, "region": "east"},
		{"user_id": "u-100", "order_date": "2026-01-09", "amount": 220.00, "region": "west"},
		{"user_id": "u-102", "order_date": "2026-01-12", "amount": 75.25, "region": "south"},
	}
	sales := &models.DataSource{
		ID:     uuid.New(),
		UserID: demo.ID,
		Name:   "Sales Export",
		Type:   models.SourceTypeFile,
		Schema: models.Schema{
			"user_id":    {Name: "user_id", Kind: models.FieldKindString, Description: "customer identifier"},
			"order_date": {Name: "order_date", Kind: models.FieldKindDate},
			"amount":     {Name: "amount", Kind: models.FieldKindNumber},
			"region":     {Name: "region", Kind: models.FieldKindString},
		},
		RowCount:  int64(len(salesRows)),
		Status:    models.SourceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	campaignRows := []map[string]any{
		{"customer_id": "u-100", "user_id": "u-100", "campaign": "spring-launch", "purchase_date": "2026-01-05", "spend": 12.00},
		{"customer_id": "u-101", "user_id": "u-101", "campaign": "spring-launch", "purchase_date": "2026-01-06", "spend": 8.40},
		{"customer_id": "u-102", "user_id": "u-102", "campaign": "retargeting", "purchase_date": "2026-01-12", "spend": 3.75},
	}
	campaigns := &models.DataSource{
		ID:     uuid.New(),
		UserID: demo.ID,
		Name:   "Ad Campaigns",
		Type:   models.SourceTypeFile,
		Schema: models.Schema{
			"customer_id":   {Name: "customer_id", Kind: models.FieldKindString},
			"user_id":       {Name: "user_id", Kind: models.FieldKindString},
			"campaign":      {Name: "campaign", Kind: models.FieldKindString},
			"purchase_date": {Name: "purchase_date", Kind: models.FieldKindDate},
			"spend":         {Name: "spend", Kind: models.FieldKindNumber},
		},
		RowCount:  int64(len(campaignRows)),
		Status:    models.SourceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, seed := range []struct {
		src  *models.DataSource
		rows []map[string]any
	}{
		{sales, salesRows},
		{campaigns, campaignRows},
	} {
		if err := sourceRepo.Create(ctx, seed.src); err != nil {
			appLogger.Fatal("Failed to create data source", zap.String("name", seed.src.Name), zap.Error(err))
		}
		if err := rowRepo.BulkInsert(ctx, seed.src.ID, seed.rows); err != nil {
			appLogger.Fatal("Failed to insert rows", zap.String("name", seed.src.Name), zap.Error(err))
		}
	}

	appLogger.Info("Seed complete",
		zap.String("user", demo.Email),
		zap.Int("sources", 2),
	)
}
