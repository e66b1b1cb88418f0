package models

import (
	"time"

	"github.com/google/uuid"
)

type DataSourceType string

const (
	SourceTypeFile     DataSourceType = "file"
	SourceTypeDatabase DataSourceType = "database"
	SourceTypeAPI      DataSourceType = "api"
)

type DataSourceStatus string

const (
	SourceStatusActive  DataSourceStatus = "active"
	SourceStatusError   DataSourceStatus = "error"
	SourceStatusSyncing DataSourceStatus = "syncing"
)

// FieldKind is the closed set of schema field types.
type FieldKind string

const (
	FieldKindString  FieldKind = "string"
	FieldKindNumber  FieldKind = "number"
	FieldKindDate    FieldKind = "date"
	FieldKindBoolean FieldKind = "boolean"
)

// FieldDef describes one column of a data source's schema. Field names
// are the only information the correlation planner ever looks at.
type FieldDef struct {
	Name        string    `json:"name"`
	Kind        FieldKind `json:"kind"`
	Description string    `json:"description,omitempty"`
}

// Schema maps field name to its definition.
type Schema map[string]FieldDef

// DatabaseConnection holds credentials for a live database source.
// Only PostgreSQL is supported; other providers get their own struct
// when added so the provider switch stays exhaustive.
type DatabaseConnection struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Table    string `json:"table"`
}

// DSN renders the connection as a pgx connection string.
func (c DatabaseConnection) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + sslMode
}

type DataSource struct {
	ID         uuid.UUID           `db:"id"`
	UserID     uuid.UUID           `db:"user_id"`
	Name       string              `db:"name"`
	Type       DataSourceType      `db:"type"`
	Schema     Schema              `db:"schema"`
	Connection *DatabaseConnection `db:"connection"` // nil for file/api sources
	RowCount   int64               `db:"row_count"`
	Status     DataSourceStatus    `db:"status"`
	CreatedAt  time.Time           `db:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at"`
}
