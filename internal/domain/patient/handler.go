package patient

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

// RegisterRoutes mounts the patient endpoints on a group whose prefix
// carries :hospital_id.
func (h *Handler) RegisterRoutes(hospital *echo.Group) {
	g := hospital.Group("/patients", auth.RequireRole(auth.RoleStaff))
	g.POST("", h.Register)
	g.GET("", h.Search)
	g.GET("/search", h.Search)
	g.GET("/:patient_id", h.Get)
	g.PUT("/:patient_id", h.Update)
	g.DELETE("/:patient_id", h.Delete)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument.WithMessage("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) Register(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	var in Patient
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Register(c.Request().Context(), hospitalID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient_id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient_id")
	if err != nil {
		return err
	}
	var in Patient
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), hospitalID, id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient_id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), hospitalID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Search lists active patients. Query parameters: name, registration_number,
// birth_date (YYYY-MM-DD), page (1-based) and size.
func (h *Handler) Search(c echo.Context) error {
	hospitalID, err := pathID(c, "hospital_id")
	if err != nil {
		return err
	}
	f := SearchFilter{
		Name:               c.QueryParam("name"),
		RegistrationNumber: c.QueryParam("registration_number"),
		BirthDate:          c.QueryParam("birth_date"),
	}
	page, err := h.svc.Search(c.Request().Context(), hospitalID, f, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page.Items, page.Params, page.TotalCount))
}
