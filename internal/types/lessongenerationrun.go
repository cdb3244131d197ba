package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonGenerationRun struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`     // lesson|part|activities
	Status    string         `gorm:"column:status;not null;index" json:"status"` // succeeded|failed
	Model     string         `gorm:"column:model;not null" json:"model"`
	Repaired  bool           `gorm:"column:repaired;not null;default:false" json:"repaired"`
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	Result    datatypes.JSON `gorm:"type:jsonb;column:result" json:"result,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonGenerationRun) TableName() string { return "lesson_generation_run" }
