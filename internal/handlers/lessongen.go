package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
	"github.com/brightclass/brightclass-backend/internal/requestdata"
	"github.com/brightclass/brightclass-backend/internal/services"
)

type LessonGenHandler struct {
	svc   services.LessonGenService
	quota services.QuotaService
}

func NewLessonGenHandler(svc services.LessonGenService, quota services.QuotaService) *LessonGenHandler {
	return &LessonGenHandler{svc: svc, quota: quota}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func bindGenerateInput(c *gin.Context) (services.GenerateInput, bool) {
	var in services.GenerateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return in, false
	}
	return in, true
}

// quotaDetail attaches the usage counters to quota-exceeded failures so the
// portal can show remaining allowance without a second request.
func quotaDetail(err error, snap services.QuotaSnapshot) any {
	if apierr.From(err).Code == apierr.CodeQuotaExceeded {
		return snap
	}
	return nil
}

// POST /api/generate/lesson
func (h *LessonGenHandler) GenerateLesson(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	in, ok := bindGenerateInput(c)
	if !ok {
		return
	}

	result, err := h.svc.GenerateLesson(c.Request.Context(), userID, in)
	if err != nil {
		snap, _ := h.quota.Snapshot(c.Request.Context(), userID)
		RespondAPIError(c, err, quotaDetail(err, snap))
		return
	}
	RespondOK(c, result)
}

// POST /api/generate/part
func (h *LessonGenHandler) GeneratePart(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	in, ok := bindGenerateInput(c)
	if !ok {
		return
	}

	result, err := h.svc.GeneratePart(c.Request.Context(), userID, in)
	if err != nil {
		snap, _ := h.quota.Snapshot(c.Request.Context(), userID)
		RespondAPIError(c, err, quotaDetail(err, snap))
		return
	}
	RespondOK(c, result)
}

// POST /api/generate/activities
func (h *LessonGenHandler) GenerateActivities(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	in, ok := bindGenerateInput(c)
	if !ok {
		return
	}

	result, err := h.svc.GenerateActivities(c.Request.Context(), userID, in)
	if err != nil {
		snap, _ := h.quota.Snapshot(c.Request.Context(), userID)
		RespondAPIError(c, err, quotaDetail(err, snap))
		return
	}
	RespondOK(c, result)
}

// GET /api/generate/quota
func (h *LessonGenHandler) GetQuota(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	snap, err := h.quota.Snapshot(c.Request.Context(), userID)
	if err != nil {
		RespondAPIError(c, err, nil)
		return
	}
	RespondOK(c, gin.H{"quota": snap})
}
