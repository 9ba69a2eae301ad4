package audit

import (
	"encoding/json"
	"fmt"

	"finance-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	// jsonb needs a JSON literal, never an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("save audit log: %w", err)
	}
	return nil
}

// Record writes a log entry and only warns on failure; auditing never
// fails the request that triggered it.
func Record(db *gorm.DB, opts LogOptions) {
	if err := WriteLog(db, opts); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"entity_type": opts.EntityType,
			"entity_id":   opts.EntityID,
			"action":      opts.Action,
		}).Warn("audit log not written")
	}
}
