package api

import (
	"net/http"
	"strconv"
	"time"

	"tour-booking-service/internal/models"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.store.GetAdminStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type tourRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"required"`
	Date            string  `json:"date" binding:"required"`
	MaxParticipants int     `json:"max_participants" binding:"required"`
	Status          string  `json:"status" binding:"required"`
}

func (r *tourRequest) validate() (time.Time, string) {
	if r.Price <= 0 || r.MaxParticipants <= 0 {
		return time.Time{}, "Price and max participants must be positive"
	}
	switch r.Status {
	case models.TourStatusAvailable, models.TourStatusComingSoon, models.TourStatusDone:
	default:
		return time.Time{}, "Unknown tour status"
	}
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return time.Time{}, "Date must be formatted YYYY-MM-DD"
	}
	return date, ""
}

func (h *Handler) adminListTours(c *gin.Context) {
	tours, err := h.store.GetAllTours(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

func (h *Handler) adminCreateTour(c *gin.Context) {
	var req tourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	date, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	tour := &models.Tour{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Date:            date,
		MaxParticipants: req.MaxParticipants,
		Status:          req.Status,
	}
	if err := h.store.CreateTour(c.Request.Context(), tour); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tour)
}

func (h *Handler) adminUpdateTour(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tour ID"})
		return
	}

	var req tourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	date, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	existing, err := h.store.GetTourByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// Capacity can never drop below seats already claimed by paid bookings
	if req.MaxParticipants < existing.CurrentParticipants {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Max participants cannot be less than current participants",
		})
		return
	}

	tour := &models.Tour{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Date:            date,
		MaxParticipants: req.MaxParticipants,
		Status:          req.Status,
	}
	if err := h.store.UpdateTour(c.Request.Context(), tour); err != nil {
		h.writeError(c, err)
		return
	}
	tour.CurrentParticipants = existing.CurrentParticipants
	c.JSON(http.StatusOK, tour)
}

func (h *Handler) adminDeleteTour(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tour ID"})
		return
	}
	if err := h.store.DeleteTour(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tour deleted"})
}

func (h *Handler) adminListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) adminToggleAdmin(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.store.SetUserAdmin(c.Request.Context(), id, !user.IsAdmin); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "is_admin": !user.IsAdmin})
}

func (h *Handler) adminDeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	if id == currentUser(c).ID {
		c.JSON(http.StatusConflict, gin.H{"error": "You cannot delete your own account"})
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *Handler) adminListBookings(c *gin.Context) {
	bookings, err := h.store.ListBookings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// memoryForm reads the shared multipart fields for memory create/update
func (h *Handler) memoryForm(c *gin.Context) (*models.Memory, string) {
	memory := &models.Memory{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}

	dateStr := c.PostForm("memory_date")
	if memory.Title == "" || dateStr == "" {
		return nil, "Title and memory date are required"
	}
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, "Memory date must be formatted YYYY-MM-DD"
	}
	memory.MemoryDate = date

	if tourIDStr := c.PostForm("tour_id"); tourIDStr != "" {
		tourID, err := strconv.ParseInt(tourIDStr, 10, 64)
		if err != nil {
			return nil, "Invalid tour ID"
		}
		memory.TourID = &tourID
	}

	if file, err := c.FormFile("image"); err == nil {
		filename := h.memories.NewImageFilename(file.Filename)
		if err := c.SaveUploadedFile(file, h.memories.ImagePath(filename)); err != nil {
			return nil, "Failed to save image"
		}
		memory.ImageFilename = filename
	}

	return memory, ""
}

func (h *Handler) adminCreateMemory(c *gin.Context) {
	memory, msg := h.memoryForm(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.memories.Create(c.Request.Context(), memory); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, memory)
}

func (h *Handler) adminUpdateMemory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memory ID"})
		return
	}

	memory, msg := h.memoryForm(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	memory.ID = id

	if err := h.memories.Update(c.Request.Context(), memory); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, memory)
}

func (h *Handler) adminDeleteMemory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memory ID"})
		return
	}
	if err := h.memories.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Memory deleted"})
}
