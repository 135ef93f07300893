package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/models"
	"omnichannel/inquiries/internal/services"
	"omnichannel/inquiries/internal/tasks"
)

// RestInquiryHandler handles requests for the /livechat/inquiries REST endpoints.
type RestInquiryHandler struct {
	inquiries services.IInquiryService
	settings  services.ISettingsService
	taskQueue tasks.Enqueuer
	logger    *zap.Logger
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiries services.IInquiryService, settings services.ISettingsService, taskQueue tasks.Enqueuer, logger *zap.Logger) *RestInquiryHandler {
	return &RestInquiryHandler{
		inquiries: inquiries,
		settings:  settings,
		taskQueue: taskQueue,
		logger:    logger,
	}
}

// MatchedResponse reports whether a single-document update found its target.
type MatchedResponse struct {
	Success bool `json:"success"`
}

// CountResponse reports how many documents a bulk operation affected.
type CountResponse struct {
	Count int64 `json:"count"`
}

type departmentRequest struct {
	Department string `json:"department"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type visitorStatusRequest struct {
	Status models.VisitorStatus `json:"status" binding:"required"`
}

type bulkUnsetSlaRequest struct {
	RoomIDs []string `json:"roomIds" binding:"required"`
}

// sortMechanism honours an explicit sortBy query parameter and otherwise
// uses the configured mechanism.
func (h *RestInquiryHandler) sortMechanism(c *gin.Context) models.SortMechanism {
	if raw := c.Query("sortBy"); raw != "" {
		mechanism, _ := models.ParseSortMechanism(raw)
		return mechanism
	}
	return h.settings.QueueSortMechanism(c.Request.Context())
}

func parseNonNegativeInt(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		respondBadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (h *RestInquiryHandler) respondInquiry(c *gin.Context, inquiry *models.Inquiry, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if inquiry == nil {
		respondNotFound(c, "Inquiry")
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

func (h *RestInquiryHandler) respondMatched(c *gin.Context, matched bool, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !matched {
		respondNotFound(c, "Inquiry")
		return
	}
	c.JSON(http.StatusOK, MatchedResponse{Success: true})
}

// CreateInquiry queues an inquiry for a room, returning the room's existing
// inquiry instead when there is one.
// Handles POST /v1/livechat/inquiries
func (h *RestInquiryHandler) CreateInquiry(c *gin.Context) {
	var req models.NewInquiry
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid inquiry: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	existing, err := h.inquiries.FindOneByRoomID(ctx, req.RoomID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, existing)
		return
	}

	inquiry, err := h.inquiries.CreateInquiry(ctx, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

// GetQueued lists queued inquiries.
// Handles GET /v1/livechat/inquiries/queued?department=&limit=&skip=&sortBy=
func (h *RestInquiryHandler) GetQueued(c *gin.Context) {
	limit, ok := parseNonNegativeInt(c, "limit")
	if !ok {
		return
	}
	skip, ok := parseNonNegativeInt(c, "skip")
	if !ok {
		return
	}
	queued, err := h.inquiries.GetQueuedInquiries(c.Request.Context(), services.QueuedInquiriesOptions{
		Department: c.Query("department"),
		SortBy:     h.sortMechanism(c),
		Limit:      limit,
		Skip:       skip,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, queued)
}

// GetPositions returns the ranked queue, or one row of it with inquiryId.
// Handles GET /v1/livechat/inquiries/position?inquiryId=&department=&sortBy=
func (h *RestInquiryHandler) GetPositions(c *gin.Context) {
	positions, err := h.inquiries.GetCurrentSortedQueue(c.Request.Context(), services.QueuePositionQuery{
		InquiryID:  c.Query("inquiryId"),
		Department: c.Query("department"),
		SortBy:     h.sortMechanism(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

// GetDepartments handles GET /v1/livechat/inquiries/departments
func (h *RestInquiryHandler) GetDepartments(c *gin.Context) {
	departments, err := h.inquiries.GetDistinctQueuedDepartments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departments)
}

// GetByRoom handles GET /v1/livechat/inquiries/room/:rid
func (h *RestInquiryHandler) GetByRoom(c *gin.Context) {
	inquiry, err := h.inquiries.FindOneByRoomID(c.Request.Context(), c.Param("rid"))
	h.respondInquiry(c, inquiry, err)
}

// GetByVisitor handles GET /v1/livechat/inquiries/visitor/:token
func (h *RestInquiryHandler) GetByVisitor(c *gin.Context) {
	inquiry, err := h.inquiries.FindOneByToken(c.Request.Context(), c.Param("token"))
	h.respondInquiry(c, inquiry, err)
}

// GetStatus handles GET /v1/livechat/inquiries/:id/status
func (h *RestInquiryHandler) GetStatus(c *gin.Context) {
	status, err := h.inquiries.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if status == "" {
		respondNotFound(c, "Inquiry")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// ClaimNext claims the next inquiry of a queue for the caller. An empty
// queue answers 204.
// Handles POST /v1/livechat/inquiries/next
func (h *RestInquiryHandler) ClaimNext(c *gin.Context) {
	var req departmentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Invalid request body")
			return
		}
	}
	inquiry, err := h.inquiries.FindNextAndLock(c.Request.Context(), h.sortMechanism(c), req.Department)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if inquiry == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

func (h *RestInquiryHandler) transition(op func(context.Context, string) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		matched, err := op(c.Request.Context(), c.Param("id"))
		h.respondMatched(c, matched, err)
	}
}

// Take handles POST /v1/livechat/inquiries/:id/take
func (h *RestInquiryHandler) Take(c *gin.Context) {
	h.transition(h.inquiries.TakeInquiry)(c)
}

// Ready handles POST /v1/livechat/inquiries/:id/ready
func (h *RestInquiryHandler) Ready(c *gin.Context) {
	h.transition(h.inquiries.ReadyInquiry)(c)
}

// Open handles POST /v1/livechat/inquiries/:id/open
func (h *RestInquiryHandler) Open(c *gin.Context) {
	h.transition(h.inquiries.OpenInquiry)(c)
}

// Queue handles POST /v1/livechat/inquiries/:id/queue?removeDefaultAgent=true
func (h *RestInquiryHandler) Queue(c *gin.Context) {
	if c.Query("removeDefaultAgent") == "true" {
		h.transition(h.inquiries.QueueInquiryAndRemoveDefaultAgent)(c)
		return
	}
	h.transition(h.inquiries.QueueInquiry)(c)
}

// Unlock handles POST /v1/livechat/inquiries/:id/unlock
func (h *RestInquiryHandler) Unlock(c *gin.Context) {
	h.transition(h.inquiries.Unlock)(c)
}

// SetDefaultAgent handles PUT /v1/livechat/inquiries/:id/default-agent
func (h *RestInquiryHandler) SetDefaultAgent(c *gin.Context) {
	var agent models.DefaultAgent
	if err := c.ShouldBindJSON(&agent); err != nil {
		respondBadRequest(c, "Invalid default agent")
		return
	}
	matched, err := h.inquiries.SetDefaultAgentByID(c.Request.Context(), c.Param("id"), agent)
	h.respondMatched(c, matched, err)
}

// RemoveDefaultAgent handles DELETE /v1/livechat/inquiries/:id/default-agent
func (h *RestInquiryHandler) RemoveDefaultAgent(c *gin.Context) {
	h.transition(h.inquiries.RemoveDefaultAgentByID)(c)
}

// SetDepartment moves an inquiry to another queue and returns it.
// Handles PUT /v1/livechat/inquiries/:id/department
func (h *RestInquiryHandler) SetDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}
	inquiry, err := h.inquiries.SetDepartmentByInquiryID(c.Request.Context(), c.Param("id"), req.Department)
	h.respondInquiry(c, inquiry, err)
}

// SetRoomName handles PUT /v1/livechat/inquiries/room/:rid/name
func (h *RestInquiryHandler) SetRoomName(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}
	matched, err := h.inquiries.SetNameByRoomID(c.Request.Context(), c.Param("rid"), req.Name)
	h.respondMatched(c, matched, err)
}

// SetRoomDepartment handles PUT /v1/livechat/inquiries/room/:rid/department
func (h *RestInquiryHandler) SetRoomDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}
	matched, err := h.inquiries.ChangeDepartmentIDByRoomID(c.Request.Context(), c.Param("rid"), req.Department)
	h.respondMatched(c, matched, err)
}

// SetRoomLastMessage handles PUT /v1/livechat/inquiries/room/:rid/last-message
func (h *RestInquiryHandler) SetRoomLastMessage(c *gin.Context) {
	var msg models.MessageSnapshot
	if err := c.ShouldBindJSON(&msg); err != nil {
		respondBadRequest(c, "Invalid message")
		return
	}
	matched, err := h.inquiries.SetLastMessageByRoomID(c.Request.Context(), c.Param("rid"), msg)
	h.respondMatched(c, matched, err)
}

// SetVisitorStatus handles PUT /v1/livechat/inquiries/visitor/:token/status
func (h *RestInquiryHandler) SetVisitorStatus(c *gin.Context) {
	var req visitorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		respondBadRequest(c, "status must be one of online, away, busy, offline")
		return
	}
	matched, err := h.inquiries.UpdateVisitorStatus(c.Request.Context(), c.Param("token"), req.Status)
	h.respondMatched(c, matched, err)
}

// SetRoomSla handles PUT /v1/livechat/inquiries/room/:rid/sla
func (h *RestInquiryHandler) SetRoomSla(c *gin.Context) {
	var sla models.SlaAssignment
	if err := c.ShouldBindJSON(&sla); err != nil {
		respondBadRequest(c, "slaId is required")
		return
	}
	inquiry, err := h.inquiries.SetSlaForRoom(c.Request.Context(), c.Param("rid"), sla)
	h.respondInquiry(c, inquiry, err)
}

// UnsetRoomSla handles DELETE /v1/livechat/inquiries/room/:rid/sla
func (h *RestInquiryHandler) UnsetRoomSla(c *gin.Context) {
	inquiry, err := h.inquiries.UnsetSlaForRoom(c.Request.Context(), c.Param("rid"))
	h.respondInquiry(c, inquiry, err)
}

// BulkUnsetSla handles POST /v1/livechat/inquiries/sla/bulk-unset
func (h *RestInquiryHandler) BulkUnsetSla(c *gin.Context) {
	var req bulkUnsetSlaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "roomIds is required")
		return
	}
	count, err := h.inquiries.BulkUnsetSla(c.Request.Context(), req.RoomIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

// SetRoomPriority handles PUT /v1/livechat/inquiries/room/:rid/priority
func (h *RestInquiryHandler) SetRoomPriority(c *gin.Context) {
	var priority models.Priority
	if err := c.ShouldBindJSON(&priority); err != nil {
		respondBadRequest(c, "priority _id is required")
		return
	}
	inquiry, err := h.inquiries.SetPriorityForRoom(c.Request.Context(), c.Param("rid"), priority)
	h.respondInquiry(c, inquiry, err)
}

// UnsetRoomPriority handles DELETE /v1/livechat/inquiries/room/:rid/priority
func (h *RestInquiryHandler) UnsetRoomPriority(c *gin.Context) {
	inquiry, err := h.inquiries.UnsetPriorityForRoom(c.Request.Context(), c.Param("rid"))
	h.respondInquiry(c, inquiry, err)
}

// RemoveByRoom handles DELETE /v1/livechat/inquiries/room/:rid
func (h *RestInquiryHandler) RemoveByRoom(c *gin.Context) {
	count, err := h.inquiries.RemoveByRoomID(c.Request.Context(), c.Param("rid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

// RemoveByVisitor schedules removal of a visitor's inquiries.
// Handles DELETE /v1/livechat/inquiries/visitor/:token
func (h *RestInquiryHandler) RemoveByVisitor(c *gin.Context) {
	info, err := tasks.EnqueueVisitorCleanup(c.Request.Context(), h.taskQueue, c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": info.ID})
}

// UnlockAll releases every claim lease.
// Handles POST /v1/admin/inquiries/unlock-all
func (h *RestInquiryHandler) UnlockAll(c *gin.Context) {
	count, err := h.inquiries.UnlockAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}
