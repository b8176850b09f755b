package hospital

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/hospitals", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.PUT("/:hospital_id", h.Update)
	admin.DELETE("/:hospital_id", h.Delete)

	api.GET("/hospitals/:hospital_id", h.Get, auth.RequireHospitalAccess())
}

func hospitalID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("hospital_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument.WithMessage("invalid hospital id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in Hospital
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = 0
	if err := h.svc.Create(c.Request().Context(), &in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, in)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	hosp, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, pg, total))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	var in Hospital
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = id
	if err := h.svc.Update(c.Request().Context(), &in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, in)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
