package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/service"
	"tour-booking-service/internal/store"
	"tour-booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ContactMailer is the mail surface the contact form needs
type ContactMailer interface {
	SendContact(name, email, subject, message string) error
}

// Handler contains HTTP handlers
type Handler struct {
	users     *service.UserService
	bookings  *service.BookingService
	callbacks *service.CallbackService
	memories  *service.MemoryService
	store     *store.Store
	mailer    ContactMailer
	mediaDir  string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	users *service.UserService,
	bookings *service.BookingService,
	callbacks *service.CallbackService,
	memories *service.MemoryService,
	st *store.Store,
	mailer ContactMailer,
	mediaDir string,
) *Handler {
	return &Handler{
		users:     users,
		bookings:  bookings,
		callbacks: callbacks,
		memories:  memories,
		store:     st,
		mailer:    mailer,
		mediaDir:  mediaDir,
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

	router.Static("/media", h.mediaDir)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/tours", h.listTours)
		v1.GET("/tours/:id", h.getTour)
		v1.GET("/memories", h.listMemories)
		v1.POST("/contact", h.contact)

		// The provider posts here; it cannot authenticate.
		v1.POST("/payments/callback", h.paymentCallback)

		authed := v1.Group("", h.requireAuth())
		{
			authed.POST("/bookings", h.createBooking)
			authed.GET("/bookings", h.listMyBookings)
			authed.GET("/bookings/:id", h.getBooking)
			authed.POST("/bookings/:id/pay", h.payBooking)
		}

		admin := v1.Group("/admin", h.requireAuth(), h.requireAdmin())
		{
			admin.GET("/stats", h.adminStats)
			admin.GET("/tours", h.adminListTours)
			admin.POST("/tours", h.adminCreateTour)
			admin.PUT("/tours/:id", h.adminUpdateTour)
			admin.DELETE("/tours/:id", h.adminDeleteTour)
			admin.GET("/users", h.adminListUsers)
			admin.POST("/users/:id/toggle-admin", h.adminToggleAdmin)
			admin.DELETE("/users/:id", h.adminDeleteUser)
			admin.GET("/bookings", h.adminListBookings)
			admin.POST("/memories", h.adminCreateMemory)
			admin.PUT("/memories/:id", h.adminUpdateMemory)
			admin.DELETE("/memories/:id", h.adminDeleteMemory)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) listTours(c *gin.Context) {
	status := c.DefaultQuery("status", models.TourStatusAvailable)
	switch status {
	case models.TourStatusAvailable, models.TourStatusComingSoon, models.TourStatusDone:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tour status"})
		return
	}

	tours, err := h.store.GetToursByStatus(c.Request.Context(), status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

func (h *Handler) getTour(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tour ID"})
		return
	}

	tour, err := h.store.GetTourByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func (h *Handler) listMemories(c *gin.Context) {
	memories, err := h.memories.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": memories})
}

func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), &req, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) listMyBookings(c *gin.Context) {
	bookings, err := h.bookings.ListUserBookings(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) getBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	detail, err := h.bookings.GetBooking(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type payRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

func (h *Handler) payBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.bookings.Pay(c.Request.Context(), id, currentUser(c).ID, req.PhoneNumber)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "STK push sent. Enter your PIN on the phone to complete payment.",
		"checkout_request_id": resp.CheckoutRequestID,
		"customer_message":    resp.CustomerMessage,
	})
}

// paymentCallback receives the provider's asynchronous settlement
// webhook. Handled outcomes, including logically failed ones, are
// acknowledged with HTTP 200 so the provider stops retrying; only a
// persistence fault returns 500 to request redelivery.
func (h *Handler) paymentCallback(c *gin.Context) {
	var env models.StkCallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		util.CallbacksReceivedTotal.WithLabelValues("parse_error").Inc()
		util.GetLogger().Error("Malformed payment callback", zap.Error(err))
		c.JSON(http.StatusOK, models.CallbackAck{ResultCode: 1, ResultDesc: "Malformed callback payload"})
		return
	}

	ack, err := h.callbacks.Process(c.Request.Context(), &env)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ack)
		return
	}
	c.JSON(http.StatusOK, ack)
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *Handler) contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address"})
		return
	}

	if err := h.mailer.SendContact(req.Name, req.Email, req.Subject, req.Message); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send your message, please try again later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your message has been sent"})
}

// writeError maps domain errors to HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidParticipants),
		errors.Is(err, service.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotBookingOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrTourNotFound),
		errors.Is(err, store.ErrBookingNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrMemoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrTourNotAvailable),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrGatewayAuth),
		errors.Is(err, service.ErrGatewayRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
