package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/service"
)

// BookingHandlers эндпоинты бронирований для пользователей и гостей
type BookingHandlers struct {
	bookings *service.BookingService
	logger   *zap.Logger
}

func NewBookingHandlers(bookings *service.BookingService, logger *zap.Logger) *BookingHandlers {
	return &BookingHandlers{bookings: bookings, logger: logger}
}

type createDaycareRequest struct {
	Start    time.Time `json:"start" binding:"required"`
	End      time.Time `json:"end" binding:"required"`
	ChildIDs []int64   `json:"child_ids" binding:"required,min=1"`
	Comment  string    `json:"comment"`
}

// CreateDaycare бронирует почасовое посещение на окно [start, end)
func (h *BookingHandlers) CreateDaycare(c *gin.Context) {
	var req createDaycareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	booking, err := h.bookings.CreateDaycare(c.Request.Context(), service.CreateDaycareInput{
		Caller:   callerFrom(c),
		Start:    req.Start,
		End:      req.End,
		ChildIDs: req.ChildIDs,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

type createIntervalRequest struct {
	Kind    model.ResourceKind `json:"kind" binding:"required"`
	SlotID  int64              `json:"slot_id" binding:"required"`
	Comment string             `json:"comment"`
}

// CreateInterval бронирует разовый слот от имени пользователя
func (h *BookingHandlers) CreateInterval(c *gin.Context) {
	var req createIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	booking, err := h.bookings.CreateInterval(c.Request.Context(), service.CreateIntervalInput{
		Caller:  callerFrom(c),
		Kind:    req.Kind,
		SlotID:  req.SlotID,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

type guestBookingRequest struct {
	Kind    model.ResourceKind `json:"kind" binding:"required"`
	SlotID  int64              `json:"slot_id" binding:"required"`
	Guest   model.GuestContact `json:"guest" binding:"required"`
	Comment string             `json:"comment"`
}

// CreateGuest бронирует разовый слот без аккаунта. Ответ содержит код
// управления бронью; это единственный раз, когда сервер его показывает.
func (h *BookingHandlers) CreateGuest(c *gin.Context) {
	var req guestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Guest.Email == "" || req.Guest.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guest name and email are required"})
		return
	}

	booking, err := h.bookings.CreateInterval(c.Request.Context(), service.CreateIntervalInput{
		Caller:  service.Caller{Role: model.RoleGuest},
		Kind:    req.Kind,
		SlotID:  req.SlotID,
		Guest:   req.Guest,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetGuest возвращает гостевую бронь по коду управления
func (h *BookingHandlers) GetGuest(c *gin.Context) {
	booking, err := h.bookings.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelGuest отменяет гостевую бронь по коду управления
func (h *BookingHandlers) CancelGuest(c *gin.Context) {
	reference := c.Param("reference")
	booking, err := h.bookings.GetByReference(c.Request.Context(), reference)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	caller := service.Caller{Role: model.RoleGuest, Reference: reference}
	if err := h.bookings.Cancel(c.Request.Context(), caller, booking.ID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// List возвращает брони пользователя; администратор видит все
func (h *BookingHandlers) List(c *gin.Context) {
	bookings, err := h.bookings.List(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// Get возвращает бронь по идентификатору
func (h *BookingHandlers) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	booking, err := h.bookings.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type modifyBookingRequest struct {
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	SlotID   int64      `json:"slot_id"`
	ChildIDs []int64    `json:"child_ids"`
	Comment  *string    `json:"comment"`
}

// Modify изменяет окно, слот или состав детей брони
func (h *BookingHandlers) Modify(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	in := service.ModifyInput{
		Caller:    callerFrom(c),
		BookingID: id,
		SlotID:    req.SlotID,
		ChildIDs:  req.ChildIDs,
		Comment:   req.Comment,
	}
	if req.Start != nil {
		in.Start = *req.Start
	}
	if req.End != nil {
		in.End = *req.End
	}

	booking, err := h.bookings.Modify(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Confirm подтверждает ожидающую бронь (только администратор)
func (h *BookingHandlers) Confirm(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	booking, err := h.bookings.Confirm(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Cancel отменяет бронь с возвратом мест
func (h *BookingHandlers) Cancel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.bookings.Cancel(c.Request.Context(), callerFrom(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// Delete удаляет бронь; активная бронь сначала возвращает места
func (h *BookingHandlers) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.bookings.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
