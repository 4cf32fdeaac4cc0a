package invoice

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/handler"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/presenter"
	"github.com/jwalitptl/orms-api/internal/service/billing"
)

type Service interface {
	SubmitServiceRequest(ctx context.Context, auth model.AuthContext, req model.ServiceRequest) (*billing.Submission, error)
	UpdateInvoiceStatus(ctx context.Context, auth model.AuthContext, invoiceID string, update billing.InvoiceUpdate) (*model.BillRecord, error)
	GetInvoice(ctx context.Context, invoiceID string) (*model.BillRecord, error)
	ListInvoices(ctx context.Context, filters model.InvoiceFilters) ([]model.BillRecord, error)
}

type Handler struct {
	service   Service
	presenter *presenter.Presenter
}

func NewHandler(service Service, p *presenter.Presenter) *Handler {
	return &Handler{service: service, presenter: p}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	invoices := r.Group("/invoices")
	{
		invoices.GET("", h.ListInvoices)
		invoices.POST("", h.SubmitServiceRequest)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PATCH("/:id", h.UpdateInvoice)
	}
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var filters model.InvoiceFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	records, err := h.service.ListInvoices(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Invoices(records))
}

// SubmitServiceRequest answers 201 when a new bill was opened and 200 when
// the items merged into today's pending bill.
func (h *Handler) SubmitServiceRequest(c *gin.Context) {
	auth, ok := handler.Auth(c)
	if !ok {
		return
	}
	var req model.ServiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	sub, err := h.service.SubmitServiceRequest(c.Request.Context(), auth, req)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if sub.Merged {
		status = http.StatusOK
	}
	c.JSON(status, h.presenter.Submitted(sub.Invoice, sub.Merged))
}

func (h *Handler) GetInvoice(c *gin.Context) {
	record, err := h.service.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Invoice(record))
}

func (h *Handler) UpdateInvoice(c *gin.Context) {
	auth, ok := handler.Auth(c)
	if !ok {
		return
	}
	var req model.UpdateInvoiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	record, err := h.service.UpdateInvoiceStatus(c.Request.Context(), auth, c.Param("id"), billing.InvoiceUpdate{
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		PaidDate:      req.PaidDate,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Invoice(record))
}
