package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/gateway"
	"sav-service/internal/models"
	"sav-service/internal/service"
	"sav-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CompensationLister exposes pending compensation intents for ops visibility.
type CompensationLister interface {
	ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error)
}

// Handler contains HTTP handlers
type Handler struct {
	interventions *service.InterventionService
	parts         *service.PartsLedger
	labor         *service.LaborLedger
	invoices      *service.InvoiceService
	compensations CompensationLister
}

// NewHandler creates a new HTTP handler
func NewHandler(
	interventions *service.InterventionService,
	parts *service.PartsLedger,
	labor *service.LaborLedger,
	invoices *service.InvoiceService,
	compensations CompensationLister,
) *Handler {
	return &Handler{
		interventions: interventions,
		parts:         parts,
		labor:         labor,
		invoices:      invoices,
		compensations: compensations,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/interventions", h.createIntervention)
		v1.GET("/interventions/:id", h.getIntervention)
		v1.PATCH("/interventions/:id/status", h.updateStatus)
		v1.PUT("/interventions/:id/technician", h.assignTechnician)
		v1.DELETE("/interventions/:id", h.deleteIntervention)
		v1.POST("/interventions/:id/restore", h.restoreIntervention)

		v1.POST("/interventions/:id/parts", h.addPart)
		v1.DELETE("/interventions/:id/parts/:partUsedId", h.removePart)
		v1.PUT("/interventions/:id/labor", h.setLabor)
		v1.DELETE("/interventions/:id/labor", h.removeLabor)

		v1.POST("/interventions/:id/invoice", h.generateInvoice)
		v1.POST("/orders/:orderId/invoice", h.generateOrderInvoice)
		v1.GET("/invoices/:id", h.getInvoice)
		v1.GET("/invoices/:id/pdf", h.getInvoicePDF)

		v1.GET("/reclamations/:id/interventions", h.listByReclamation)
		v1.GET("/technicians/:id/interventions", h.listByTechnician)

		v1.GET("/compensations/pending", h.listPendingCompensations)
	}
}

// requestContext builds the operation context: the caller's bearer token is
// forwarded to collaborators made on their behalf.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	auth := c.GetHeader("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found {
		ctx = gateway.WithToken(ctx, token)
	}
	return ctx
}

// actorFrom resolves the acting user from the upstream-authenticated header.
func actorFrom(c *gin.Context) service.Actor {
	userID, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	return service.Actor{UserID: userID}
}

func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

func (h *Handler) createIntervention(c *gin.Context) {
	var req service.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, err := h.interventions.CreateIntervention(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, iv)
}

func (h *Handler) getIntervention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.interventions.GetIntervention(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, err := h.interventions.UpdateStatus(requestContext(c), actorFrom(c), id, req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

type assignTechnicianRequest struct {
	TechnicianID int64 `json:"technician_id" binding:"required"`
}

func (h *Handler) assignTechnician(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req assignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, err := h.interventions.AssignTechnician(requestContext(c), actorFrom(c), id, req.TechnicianID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

func (h *Handler) deleteIntervention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.interventions.Delete(requestContext(c), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) restoreIntervention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	iv, err := h.interventions.Restore(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

type addPartRequest struct {
	PartID   int64 `json:"part_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addPart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	part, err := h.parts.AddPart(requestContext(c), actorFrom(c), id, req.PartID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, part)
}

func (h *Handler) removePart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	partUsedID, ok := pathID(c, "partUsedId")
	if !ok {
		return
	}

	if err := h.parts.RemovePart(requestContext(c), actorFrom(c), id, partUsedID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type setLaborRequest struct {
	Hours       float64 `json:"hours" binding:"required"`
	HourlyRate  int64   `json:"hourly_rate" binding:"required,min=0"`
	Description string  `json:"description"`
}

func (h *Handler) setLabor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setLaborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	labor, err := h.labor.SetLabor(requestContext(c), actorFrom(c), id, req.Hours, req.HourlyRate, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, labor)
}

func (h *Handler) removeLabor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.labor.RemoveLabor(requestContext(c), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *Handler) generateInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.GenerateInvoice(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) generateOrderInvoice(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req service.OrderInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	inv, err := h.invoices.GenerateInvoiceFromOrder(requestContext(c), actorFrom(c), orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.GetInvoice(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) getInvoicePDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pdf, err := h.invoices.GetInvoicePDF(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) listByReclamation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ivs, err := h.interventions.ListByReclamation(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interventions": ivs})
}

func (h *Handler) listByTechnician(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ivs, err := h.interventions.ListByTechnician(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interventions": ivs})
}

func (h *Handler) listPendingCompensations(c *gin.Context) {
	intents, err := h.compensations.ListPendingCompensations(requestContext(c), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": intents})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
