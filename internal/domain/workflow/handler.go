package workflow

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "supervisor", "physician", "nurse", "coordinator")

	g := api.Group("", role)
	g.GET("/patients/:id/workflow", h.GetWorkflow)
	g.POST("/patients/:id/workflow", h.InitializeWorkflow)
	g.GET("/patients/:id/workflow/history", h.GetHistory)
	g.POST("/patients/:id/workflow/transition", h.Transition)
	g.GET("/workflow/board", h.ListByStatus)
}

func (h *Handler) GetWorkflow(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	rec, err := h.svc.Get(c.Request().Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no workflow record for patient")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

type initializeRequest struct {
	StatusID uuid.UUID `json:"status_id"`
	Notes    *string   `json:"notes,omitempty"`
}

func (h *Handler) InitializeWorkflow(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req initializeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StatusID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "status_id is required")
	}
	actorID := auth.UserIDFromContext(c.Request().Context())
	rec, err := h.svc.Initialize(c.Request().Context(), patientID, req.StatusID, actorID, req.Notes)
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Transition(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ToStatusID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to_status_id is required")
	}
	req.PatientID = patientID
	req.ActorID = auth.UserIDFromContext(c.Request().Context())
	rec, err := h.svc.Transition(c.Request().Context(), req)
	if err != nil {
		return transitionHTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListByStatus(c echo.Context) error {
	statusID, err := uuid.Parse(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "status query parameter is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByStatus(c.Request().Context(), statusID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// transitionHTTPError maps coordinator rejections onto HTTP statuses. The
// TransitionError itself is the response body so clients can branch on code
// and read blocking_task_ids.
func transitionHTTPError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no workflow record for patient")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	switch te.Code {
	case CodeIllegalTransition, CodeUnknownStatus:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, te)
	case CodeOpenTasksRemain, CodeConcurrentModification:
		return echo.NewHTTPError(http.StatusConflict, te)
	case CodeApprovalRequired:
		return echo.NewHTTPError(http.StatusForbidden, te)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, te)
	}
}
