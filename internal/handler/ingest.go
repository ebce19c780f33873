package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/petavatar/api/internal/model"
	"github.com/petavatar/api/internal/service"
	"github.com/petavatar/api/pkg/response"
)

type IngestHandler struct {
	service   *service.IngestService
	validator *validator.Validate
}

func NewIngestHandler(svc *service.IngestService, v *validator.Validate) *IngestHandler {
	return &IngestHandler{
		service:   svc,
		validator: v,
	}
}

// UploadGrant handles POST /api/uploads
// @Summary      Issue upload grant
// @Description  Assign a job ID and return a presigned upload URL for the pet image
// @Tags         Ingest
// @Produce      json
// @Success      200 {object} model.UploadGrantResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Router       /api/uploads [post]
func (h *IngestHandler) UploadGrant(c *fiber.Ctx) error {
	result, err := h.service.IssueUploadGrant(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// Process handles POST /api/process
// @Summary      Start avatar processing
// @Description  Validate an uploaded object reference and queue it for the avatar pipeline
// @Tags         Ingest
// @Accept       json
// @Produce      json
// @Param        request body model.ProcessRequest true "Process request"
// @Success      202 {object} model.ProcessResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /api/process [post]
func (h *IngestHandler) Process(c *fiber.Ctx) error {
	var req model.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Process(c.Context(), req.S3URI)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			return response.ValidationError(c, validationErr.Message, nil)
		}
		var policyErr *service.PolicyError
		if errors.As(err, &policyErr) {
			return response.PolicyViolation(c, policyErr.Message, fiber.Map{"rule": policyErr.Rule})
		}
		if errors.Is(err, service.ErrObjectNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}
