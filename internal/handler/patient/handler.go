package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/handler"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/presenter"
	patientsvc "github.com/jwalitptl/orms-api/internal/service/patient"
)

type Service interface {
	Create(ctx context.Context, auth model.AuthContext, req model.CreatePatientRequest) (*patientsvc.Registration, error)
	Get(ctx context.Context, id string) (*model.PatientRecord, error)
	List(ctx context.Context, filters model.PatientFilters) ([]model.PatientRecord, error)
	Queue(ctx context.Context) ([]model.PatientRecord, error)
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	Update(ctx context.Context, id string, req model.UpdatePatientRequest) (*model.PatientRecord, error)
	Delete(ctx context.Context, auth model.AuthContext, id string) error
}

// VisitService is the part of the billing engine that works on a
// patient's visits.
type VisitService interface {
	UpdatePatientVisitStatus(ctx context.Context, auth model.AuthContext, patientID, status string) (*model.PatientRecord, error)
	CheckFollowUp(ctx context.Context, patientID string) (*model.FollowUp, error)
	ListPatientVisits(ctx context.Context, patientID string) ([]model.VisitDetail, error)
}

type Handler struct {
	service   Service
	visits    VisitService
	presenter *presenter.Presenter
}

func NewHandler(service Service, visits VisitService, p *presenter.Presenter) *Handler {
	return &Handler{service: service, visits: visits, presenter: p}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/queue", h.GetQueue)
		patients.GET("/:id", h.GetPatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
		patients.PATCH("/:id/status", h.UpdateVisitStatus)
		patients.GET("/:id/visits", h.ListVisits)
		patients.GET("/:id/followup-check", h.CheckFollowUp)
	}
	r.GET("/dashboard/stats", h.GetDashboardStats)
}

type registrationResponse struct {
	Patient presenter.Patient `json:"patient"`
	Invoice presenter.Invoice `json:"invoice"`
}

func (h *Handler) CreatePatient(c *gin.Context) {
	auth, ok := handler.Auth(c)
	if !ok {
		return
	}
	var req model.CreatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reg, err := h.service.Create(c.Request.Context(), auth, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, registrationResponse{
		Patient: h.presenter.Patient(reg.Patient),
		Invoice: h.presenter.Invoice(reg.Invoice),
	})
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filters model.PatientFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	records, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Patients(records))
}

func (h *Handler) GetQueue(c *gin.Context) {
	records, err := h.service.Queue(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Patients(records))
}

func (h *Handler) GetPatient(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Patient(record))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var req model.UpdatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Patient(record))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	auth, ok := handler.Auth(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), auth, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("Patient deleted successfully"))
}

func (h *Handler) UpdateVisitStatus(c *gin.Context) {
	auth, ok := handler.Auth(c)
	if !ok {
		return
	}
	var req model.UpdateVisitStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	record, err := h.visits.UpdatePatientVisitStatus(c.Request.Context(), auth, c.Param("id"), req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Patient(record))
}

func (h *Handler) ListVisits(c *gin.Context) {
	visits, err := h.visits.ListPatientVisits(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Visits(visits))
}

func (h *Handler) CheckFollowUp(c *gin.Context) {
	followUp, err := h.visits.CheckFollowUp(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.FollowUp(followUp))
}

func (h *Handler) GetDashboardStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Stats(stats))
}
