package reference

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/handler"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/presenter"
)

type Service interface {
	Departments(ctx context.Context) ([]model.Department, error)
	Doctors(ctx context.Context) ([]model.Doctor, error)
	DoctorsByDepartment(ctx context.Context, departmentID string) ([]string, error)
	Services(ctx context.Context) ([]model.Service, error)
	PaymentMethods(ctx context.Context) ([]string, error)
	Sexes() []model.Lookup
	GenderIdentities() []model.Lookup
}

type Handler struct {
	service   Service
	presenter *presenter.Presenter
}

func NewHandler(service Service, p *presenter.Presenter) *Handler {
	return &Handler{service: service, presenter: p}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/departments", h.ListDepartments)
	r.GET("/doctors", h.ListDoctors)
	r.GET("/doctors/by-department/:id", h.ListDoctorsByDepartment)
	r.GET("/services", h.ListServices)
	r.GET("/payment-methods", h.ListPaymentMethods)
	r.GET("/sexes", h.ListSexes)
	r.GET("/gender-identities", h.ListGenderIdentities)
}

func (h *Handler) ListDepartments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.List(departments))
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.Doctors(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.List(doctors))
}

func (h *Handler) ListDoctorsByDepartment(c *gin.Context) {
	names, err := h.service.DoctorsByDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.List(names))
}

func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.service.Services(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Services(services))
}

func (h *Handler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.service.PaymentMethods(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.List(methods))
}

func (h *Handler) ListSexes(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Sexes())
}

func (h *Handler) ListGenderIdentities(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GenderIdentities())
}
