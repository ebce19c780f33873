package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/petavatar/api/internal/model"
	"github.com/petavatar/api/internal/service"
	"github.com/petavatar/api/pkg/response"
)

type EventHandler struct {
	service *service.IngestService
}

func NewEventHandler(svc *service.IngestService) *EventHandler {
	return &EventHandler{service: svc}
}

// Storage handles POST /events/storage
// @Summary      Consume storage upload notifications
// @Description  Register jobs for bucket-notification records whose key matches the upload layout
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        request body model.StorageEvent true "Bucket notification"
// @Success      200 {object} model.StorageEventResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /events/storage [post]
func (h *EventHandler) Storage(c *fiber.Ctx) error {
	var event model.StorageEvent
	if err := c.BodyParser(&event); err != nil {
		return response.ValidationError(c, "Invalid notification body", nil)
	}

	result := h.service.HandleStorageEvent(c.Context(), &event)
	return response.OK(c, result)
}
