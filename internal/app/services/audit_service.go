package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/repositories"
)

type AuditService struct {
	repo repositories.AuditRepository
}

func NewAuditService(repo repositories.AuditRepository) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// LogAudit creates an audit log entry for an administrative change
func (s *AuditService) LogAudit(ctx context.Context, tableName string, recordID uuid.UUID, action models.AuditAction, oldData, newData interface{}, changedBy *string) error {
	var oldDataJSON, newDataJSON *string

	if oldData != nil {
		jsonBytes, err := json.Marshal(oldData)
		if err != nil {
			return fmt.Errorf("failed to marshal old data: %w", err)
		}
		strJSON := string(jsonBytes)
		oldDataJSON = &strJSON
	}

	if newData != nil {
		jsonBytes, err := json.Marshal(newData)
		if err != nil {
			return fmt.Errorf("failed to marshal new data: %w", err)
		}
		strJSON := string(jsonBytes)
		newDataJSON = &strJSON
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		OldData:   oldDataJSON,
		NewData:   newDataJSON,
		ChangedBy: changedBy,
		ChangedAt: time.Now().UTC(),
	}

	return s.repo.Create(ctx, auditLog)
}
