package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskmint/internal/engine"
	"taskmint/internal/repository"
	"taskmint/internal/runlock"
)

// SchedulerHandler exposes the manual "run now" trigger and read-only views
// over definitions and their generated instances.
type SchedulerHandler struct {
	engine      *engine.Engine
	lock        runlock.Lock
	definitions *repository.DefinitionRepository
	instances   *repository.InstanceRepository
	logger      *zap.Logger
}

func NewSchedulerHandler(eng *engine.Engine, lock runlock.Lock, definitions *repository.DefinitionRepository, instances *repository.InstanceRepository, logger *zap.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		engine:      eng,
		lock:        lock,
		definitions: definitions,
		instances:   instances,
		logger:      logger,
	}
}

type runRequest struct {
	DefinitionIDs []uint `json:"definition_ids"`
}

// Run triggers a scheduler pass and returns the aggregate report
// synchronously. An empty id list means "all due definitions", matching the
// periodic trigger.
func (h *SchedulerHandler) Run(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	release, ok, err := h.lock.TryAcquire(ctx)
	if err != nil {
		h.logger.Error("Run lock unavailable", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "run lock unavailable")
	}
	if !ok {
		return errorResponse(c, http.StatusConflict, "a scheduler run is already in progress")
	}
	defer release()

	report, err := h.engine.Run(ctx, req.DefinitionIDs)
	if err != nil {
		h.logger.Error("Manual scheduler run failed", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return successResponse(c, "run completed", report)
}

// Definitions lists top-level job definitions with pagination.
func (h *SchedulerHandler) Definitions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	// Normalize here so the echoed envelope matches the rows actually
	// returned.
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	defs, total, err := h.definitions.FindAll(limit, page)
	if err != nil {
		h.logger.Error("Definition listing failed", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return successResponse(c, "ok", paginatedResponse(defs, total, page, limit))
}

// Instances lists the generated instances of one definition.
func (h *SchedulerHandler) Instances(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid definition id")
	}

	instances, err := h.instances.FindByDefinition(uint(id))
	if err != nil {
		h.logger.Error("Instance listing failed", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return successResponse(c, "ok", instances)
}
