package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hardbanrecords/backoffice/internal/engine"
	"github.com/hardbanrecords/backoffice/internal/model"
	"github.com/hardbanrecords/backoffice/pkg/response"
)

// JobsHandler exposes the job engine's inbound surface: enqueue for
// both job kinds, status and cancellation.
type JobsHandler struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewJobsHandler(eng *engine.Engine, v *validator.Validate) *JobsHandler {
	return &JobsHandler{
		engine:    eng,
		validator: v,
	}
}

// StartDistribution handles POST /api/distribution/start
func (h *JobsHandler) StartDistribution(c *fiber.Ctx) error {
	var req model.DistributionStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	priority := req.Priority
	if priority == 0 {
		priority = model.PriorityNormal
	}

	receipt, err := h.engine.Enqueue(c.Context(), model.JobKindDistribution, req.Payload, priority)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPayload) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, receipt)
}

// StartIngestion handles POST /api/ingestion/start
func (h *JobsHandler) StartIngestion(c *fiber.Ctx) error {
	var req model.IngestionStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	priority := req.Priority
	if priority == 0 {
		priority = model.PriorityNormal
	}

	receipt, err := h.engine.Enqueue(c.Context(), model.JobKindIngestion, req.Payload, priority)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPayload) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, receipt)
}

// Status handles GET /api/jobs/:jobId
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	snapshot, err := h.engine.Status(jobID)
	if err != nil {
		if errors.Is(err, engine.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, snapshot)
}

// Cancel handles POST /api/jobs/:jobId/cancel
func (h *JobsHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.CancelRequest
	_ = c.BodyParser(&req) // body is optional

	outcome, err := h.engine.Cancel(c.Context(), jobID, req.Reason)
	if err != nil && outcome == model.CancelOutcomeNotFound {
		return response.NotFound(c, "Job not found or already finished")
	}

	return response.OK(c, model.CancelResponse{
		JobID:   jobID,
		Outcome: outcome,
	})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
