package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/service"
)

// SlotHandlers административные эндпоинты слотов плюс публичное расписание
type SlotHandlers struct {
	slots  *service.SlotAdminService
	logger *zap.Logger
}

func NewSlotHandlers(slots *service.SlotAdminService, logger *zap.Logger) *SlotHandlers {
	return &SlotHandlers{slots: slots, logger: logger}
}

type createSlotRequest struct {
	Kind     model.ResourceKind `json:"kind" binding:"required"`
	Start    time.Time          `json:"start" binding:"required"`
	End      time.Time          `json:"end" binding:"required"`
	Capacity int                `json:"capacity" binding:"required,min=1"`
}

// Create создаёт один слот
func (h *SlotHandlers) Create(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	slot, err := h.slots.CreateSlot(c.Request.Context(), service.CreateSlotInput{
		Kind:     req.Kind,
		Start:    req.Start,
		End:      req.End,
		Capacity: req.Capacity,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

type batchSlotRequest struct {
	From      time.Time `json:"from" binding:"required"`
	Days      int       `json:"days" binding:"required,min=1"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour" binding:"required"`
	Capacity  int       `json:"capacity" binding:"required,min=1"`
}

// CreateBatch генерирует часовые слоты daycare на рабочие дни
func (h *SlotHandlers) CreateBatch(c *gin.Context) {
	var req batchSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	created, err := h.slots.CreateSlotBatch(c.Request.Context(), service.BatchInput{
		From:      req.From,
		Days:      req.Days,
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
		Capacity:  req.Capacity,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

// List возвращает слоты вида kind в диапазоне [from, to)
func (h *SlotHandlers) List(c *gin.Context) {
	kind, from, to, ok := rangeQuery(c)
	if !ok {
		return
	}
	slots, err := h.slots.ListSlots(c.Request.Context(), kind, from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

type updateSlotRequest struct {
	Capacity *int              `json:"capacity"`
	Status   *model.SlotStatus `json:"status"`
	Start    *time.Time        `json:"start"`
	End      *time.Time        `json:"end"`
}

// Update меняет вместимость, статус или границы слота
func (h *SlotHandlers) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	slot, err := h.slots.UpdateSlot(c.Request.Context(), id, service.UpdateSlotInput{
		Capacity: req.Capacity,
		Status:   req.Status,
		Start:    req.Start,
		End:      req.End,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// Delete удаляет слот без активных броней
func (h *SlotHandlers) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.slots.DeleteSlot(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRange удаляет слоты вида kind в диапазоне целиком или никак
func (h *SlotHandlers) DeleteRange(c *gin.Context) {
	kind, from, to, ok := rangeQuery(c)
	if !ok {
		return
	}
	deleted, err := h.slots.DeleteSlotsInRange(c.Request.Context(), kind, from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func rangeQuery(c *gin.Context) (model.ResourceKind, time.Time, time.Time, bool) {
	kind := model.ResourceKind(c.Query("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
		return "", time.Time{}, time.Time{}, false
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return "", time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return "", time.Time{}, time.Time{}, false
	}
	return kind, from, to, true
}
