package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/petavatar/api/internal/service"
	"github.com/petavatar/api/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Status handles GET /api/jobs/:jobId/status
// @Summary      Get job status
// @Description  Get the current status and progress of an avatar job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.StatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId}/status [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found: "+jobID)
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// Result handles GET /api/jobs/:jobId/result
// @Summary      Get job result
// @Description  Get the identity package and a time-limited avatar link for a completed job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ResultResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId}/result [get]
func (h *JobHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found: "+jobID)
		}
		if errors.Is(err, service.ErrNotReady) {
			return response.NotReady(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}
