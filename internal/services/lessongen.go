package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/brightclass/brightclass-backend/internal/clients/google"
	"github.com/brightclass/brightclass-backend/internal/modules/lesson/content"
	"github.com/brightclass/brightclass-backend/internal/modules/lesson/prompts"
	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
	"github.com/brightclass/brightclass-backend/internal/repos"
	"github.com/brightclass/brightclass-backend/internal/types"
)

const (
	defaultTemperature = 0.7
	// Repair runs cold to minimize drift away from the original content.
	repairTemperature = 0.2
)

type GenerateInput struct {
	LessonTitle string   `json:"lesson_title"`
	Subject     string   `json:"subject"`
	GradeLevel  string   `json:"grade_level"`
	Tone        string   `json:"tone"`
	Detail      string   `json:"detail"`
	Sections    []string `json:"sections"`
	Instruction string   `json:"instruction"`
	PartType    string   `json:"part_type"`
	PartTitle   string   `json:"part_title"`
}

type LessonResult struct {
	Lesson   content.LessonDoc `json:"lesson"`
	Quota    QuotaSnapshot     `json:"quota"`
	RunID    uuid.UUID         `json:"run_id"`
	Repaired bool              `json:"repaired"`
}

type PartResult struct {
	Part     content.Part  `json:"part"`
	Quota    QuotaSnapshot `json:"quota"`
	RunID    uuid.UUID     `json:"run_id"`
	Repaired bool          `json:"repaired"`
}

type ActivitiesResult struct {
	Activities []content.Activity `json:"activities"`
	Quota      QuotaSnapshot      `json:"quota"`
	RunID      uuid.UUID          `json:"run_id"`
	Repaired   bool               `json:"repaired"`
}

// LessonGenService is the request orchestrator: lock, quota check, generation,
// validation with one repair pass, quota consumption, audit row.
type LessonGenService interface {
	GenerateLesson(ctx context.Context, userID uuid.UUID, in GenerateInput) (*LessonResult, error)
	GeneratePart(ctx context.Context, userID uuid.UUID, in GenerateInput) (*PartResult, error)
	GenerateActivities(ctx context.Context, userID uuid.UUID, in GenerateInput) (*ActivitiesResult, error)
}

type lessonGenService struct {
	log         *logger.Logger
	gen         google.Generator
	quota       QuotaService
	runs        repos.LessonGenerationRunRepo
	model       string
	temperature float64
}

func NewLessonGenService(log *logger.Logger, gen google.Generator, quota QuotaService, runs repos.LessonGenerationRunRepo, model string) LessonGenService {
	return &lessonGenService{
		log:         log.With("service", "LessonGenService"),
		gen:         gen,
		quota:       quota,
		runs:        runs,
		model:       model,
		temperature: defaultTemperature,
	}
}

func (s *lessonGenService) GenerateLesson(ctx context.Context, userID uuid.UUID, in GenerateInput) (*LessonResult, error) {
	var (
		doc      content.LessonDoc
		repaired bool
		ran      bool
	)
	snap, err := s.quota.WithQuotaAndLock(ctx, userID, func(ctx context.Context) error {
		ran = true
		obj, rep, genErr := s.generateValidated(ctx, prompts.Lesson(promptInput(in)), prompts.LessonSchema(), func(m map[string]any) (any, error) {
			return content.CoerceLesson(m)
		})
		if genErr != nil {
			return genErr
		}
		doc = obj.(content.LessonDoc)
		repaired = rep
		return nil
	})
	runID := s.recordRun(ctx, userID, "lesson", repaired, ran, err, doc)
	if err != nil {
		return nil, err
	}
	return &LessonResult{Lesson: doc, Quota: snap, RunID: runID, Repaired: repaired}, nil
}

func (s *lessonGenService) GeneratePart(ctx context.Context, userID uuid.UUID, in GenerateInput) (*PartResult, error) {
	var (
		part     content.Part
		repaired bool
		ran      bool
	)
	snap, err := s.quota.WithQuotaAndLock(ctx, userID, func(ctx context.Context) error {
		ran = true
		obj, rep, genErr := s.generateValidated(ctx, prompts.Part(promptInput(in)), prompts.PartSchema(), func(m map[string]any) (any, error) {
			return content.CoercePart(m)
		})
		if genErr != nil {
			return genErr
		}
		part = obj.(content.Part)
		repaired = rep
		return nil
	})
	runID := s.recordRun(ctx, userID, "part", repaired, ran, err, part)
	if err != nil {
		return nil, err
	}
	return &PartResult{Part: part, Quota: snap, RunID: runID, Repaired: repaired}, nil
}

func (s *lessonGenService) GenerateActivities(ctx context.Context, userID uuid.UUID, in GenerateInput) (*ActivitiesResult, error) {
	var (
		acts     []content.Activity
		repaired bool
		ran      bool
	)
	snap, err := s.quota.WithQuotaAndLock(ctx, userID, func(ctx context.Context) error {
		ran = true
		obj, rep, genErr := s.generateValidated(ctx, prompts.Activities(promptInput(in)), prompts.ActivitiesSchema(), func(m map[string]any) (any, error) {
			return content.CoerceActivities(m)
		})
		if genErr != nil {
			return genErr
		}
		acts = obj.([]content.Activity)
		repaired = rep
		return nil
	})
	runID := s.recordRun(ctx, userID, "activities", repaired, ran, err, map[string]any{"activities": acts})
	if err != nil {
		return nil, err
	}
	return &ActivitiesResult{Activities: acts, Quota: snap, RunID: runID, Repaired: repaired}, nil
}

// generateValidated runs one generation, validates, and on failure issues
// exactly one repair call before giving up. At most two model calls happen
// here no matter how the output misbehaves.
func (s *lessonGenService) generateValidated(ctx context.Context, prompt string, schema map[string]any, coerce func(map[string]any) (any, error)) (any, bool, error) {
	raw, err := s.gen.GenerateJSON(ctx, prompt, schema, s.temperature)
	if err != nil {
		return nil, false, err
	}

	v, firstErr := parseAndCoerce(raw, coerce)
	if firstErr == nil {
		return v, false, nil
	}
	s.log.Warn("Model output failed validation, issuing repair call", "error", firstErr)

	repairedRaw, err := s.gen.GenerateJSON(ctx, prompts.Repair(raw), schema, repairTemperature)
	if err != nil {
		return nil, true, err
	}
	v, secondErr := parseAndCoerce(repairedRaw, coerce)
	if secondErr != nil {
		return nil, true, apierr.InvalidOutput(fmt.Errorf("model output invalid after repair: %w (original failure: %v)", secondErr, firstErr))
	}
	return v, true, nil
}

func parseAndCoerce(raw string, coerce func(map[string]any) (any, error)) (any, error) {
	obj, err := content.ParseObject(raw)
	if err != nil {
		return nil, err
	}
	return coerce(obj)
}

// recordRun writes the audit row for a finished request. Best-effort: a
// failed write is logged, never surfaced to the caller. Requests rejected
// before the generation function ran (lock held, quota exhausted up front)
// leave no row; a generation that ran and then failed is recorded, including
// the quota-race case where the result had to be discarded.
func (s *lessonGenService) recordRun(ctx context.Context, userID uuid.UUID, kind string, repaired, ran bool, runErr error, result any) uuid.UUID {
	if s.runs == nil {
		return uuid.Nil
	}
	if runErr != nil && !ran {
		return uuid.Nil
	}

	run := &types.LessonGenerationRun{
		ID:       uuid.New(),
		UserID:   userID,
		Kind:     kind,
		Status:   "succeeded",
		Model:    s.model,
		Repaired: repaired,
	}
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	} else if raw, marshalErr := json.Marshal(result); marshalErr == nil {
		run.Result = datatypes.JSON(raw)
	}

	if _, err := s.runs.Create(context.WithoutCancel(ctx), nil, run); err != nil {
		s.log.Warn("Failed to record generation run", "kind", kind, "error", err)
		return uuid.Nil
	}
	return run.ID
}

func promptInput(in GenerateInput) prompts.Input {
	return prompts.Input{
		LessonTitle: in.LessonTitle,
		Subject:     in.Subject,
		GradeLevel:  in.GradeLevel,
		Tone:        in.Tone,
		Detail:      in.Detail,
		Sections:    in.Sections,
		Instruction: in.Instruction,
		PartType:    in.PartType,
		PartTitle:   in.PartTitle,
	}
}
