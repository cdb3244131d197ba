package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
	"github.com/brightclass/brightclass-backend/internal/types"
)

type LessonGenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.LessonGenerationRun) (*types.LessonGenerationRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LessonGenerationRun, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.LessonGenerationRun, error)
}

type lessonGenerationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) LessonGenerationRunRepo {
	repoLog := baseLog.With("repo", "LessonGenerationRunRepo")
	return &lessonGenerationRunRepo{db: db, log: repoLog}
}

func (r *lessonGenerationRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.LessonGenerationRun) (*types.LessonGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, errors.New("run required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *lessonGenerationRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LessonGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.LessonGenerationRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *lessonGenerationRunRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.LessonGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var runs []*types.LessonGenerationRun
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
