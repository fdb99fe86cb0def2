package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/models"
)

// JobHandler serves the pipeline job endpoints.
type JobHandler struct {
	jobs domain.JobService
	log  *logrus.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs domain.JobService, log *logrus.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, log: log}
}

// Create handles POST /jobs.
func (h *JobHandler) Create(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), shopID, req.Type)
	if err != nil {
		respondServiceError(c, h.log, err, "creating job")
		return
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":  "job.create",
		"shop_id": shopID,
		"job_id":  job.ID,
		"type":    job.Type,
	}).Info("audit")

	c.JSON(http.StatusAccepted, job)
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), shopID, jobID)
	if err != nil {
		respondServiceError(c, h.log, err, "getting job")
		return
	}

	c.JSON(http.StatusOK, job)
}

// Latest handles GET /jobs/latest.
func (h *JobHandler) Latest(c *gin.Context) {
	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	job, err := h.jobs.LatestJob(c.Request.Context(), shopID)
	if err != nil {
		respondServiceError(c, h.log, err, "getting latest job")
		return
	}

	c.JSON(http.StatusOK, job)
}
