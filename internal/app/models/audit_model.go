package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditLog records an administrative change to a coupon
type AuditLog struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	TableName string      `json:"table_name" gorm:"type:varchar(50);not null"`
	RecordID  uuid.UUID   `json:"record_id" gorm:"type:uuid;not null;index"`
	Action    AuditAction `json:"action" gorm:"type:varchar(16);not null"`
	OldData   *string     `json:"old_data" gorm:"type:jsonb"`
	NewData   *string     `json:"new_data" gorm:"type:jsonb"`
	ChangedBy *string     `json:"changed_by" gorm:"type:varchar(64)"`
	ChangedAt time.Time   `json:"changed_at" gorm:"not null"`
}
