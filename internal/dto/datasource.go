package dto

import "github.com/DylanFeger/askeuno-sub001/internal/models"

type UploadSourceRequest struct {
	Name   string           `json:"name" validate:"required"`
	Schema models.Schema    `json:"schema" validate:"required"`
	Rows   []map[string]any `json:"rows" validate:"required"`
}

type ConnectSourceRequest struct {
	Name       string                    `json:"name" validate:"required"`
	Connection models.DatabaseConnection `json:"connection" validate:"required"`
	Schema     models.Schema             `json:"schema" validate:"required"`
	RowCount   int64                     `json:"row_count"`
}

type DataSourceResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Schema    models.Schema `json:"schema"`
	RowCount  int64         `json:"row_count"`
	Status    string        `json:"status"`
	CreatedAt string        `json:"created_at"`
}

type AttachSourceRequest struct {
	DataSourceID string `json:"data_source_id" validate:"required,uuid"`
}
