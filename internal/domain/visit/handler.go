package visit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/internal/platform/auth"
	"github.com/minlab/hospital/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the visit endpoints on a group whose prefix carries
// :hospital_id.
func (h *Handler) RegisterRoutes(hospital *echo.Group) {
	staff := auth.RequireRole(auth.RoleStaff)

	hospital.POST("/patients/:patient_id/visits", h.Record, staff)
	hospital.GET("/patients/:patient_id/visits", h.ListByPatient, staff)

	g := hospital.Group("/visits", staff)
	g.GET("", h.ListByHospital)
	g.GET("/:visit_id", h.Get)
	g.PUT("/:visit_id", h.Update)
	g.DELETE("/:visit_id", h.Delete)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument.WithMessage("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) Record(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patient_id")
	if err != nil {
		return err
	}
	var in Visit
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Record(c.Request().Context(), hospitalID, patientID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "visit_id")
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Update(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "visit_id")
	if err != nil {
		return err
	}
	var in Visit
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Update(c.Request().Context(), hospitalID, id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Delete(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "visit_id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), hospitalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patient_id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), hospitalID, patientID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, p, total))
}

func (h *Handler) ListByHospital(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByHospital(c.Request().Context(), hospitalID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, p, total))
}
