package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
	"github.com/brightclass/brightclass-backend/internal/repos"
)

type GenRunHandler struct {
	runs repos.LessonGenerationRunRepo
}

func NewGenRunHandler(runs repos.LessonGenerationRunRepo) *GenRunHandler {
	return &GenRunHandler{runs: runs}
}

// GET /api/generate/runs
func (h *GenRunHandler) ListRuns(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.runs.ListByUserID(c.Request.Context(), nil, userID, limit)
	if err != nil {
		RespondAPIError(c, err, nil)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

// GET /api/generate/runs/:id
func (h *GenRunHandler) GetRunByID(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), nil, runID)
	if err != nil {
		RespondAPIError(c, err, nil)
		return
	}
	if run == nil || run.UserID != userID {
		RespondError(c, http.StatusNotFound, apierr.CodeNotFound, nil)
		return
	}
	RespondOK(c, gin.H{"run": run})
}
