package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TijaraHub/tijara_api/internal/middleware"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// InboxHandler handles the unified inbox HTTP endpoints.
type InboxHandler struct {
	inboxService *service.InboxService
}

// NewInboxHandler constructs an InboxHandler.
func NewInboxHandler(inboxService *service.InboxService) *InboxHandler {
	return &InboxHandler{inboxService: inboxService}
}

// ListInbox handles GET /v1/inbox?filter=all|sent|received
func (h *InboxHandler) ListInbox(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	if supplierID == 0 {
		utils.Error(c, 401, "INVALID_TOKEN", "Unauthorized")
		return
	}

	view, err := h.inboxService.ListInbox(c.Request.Context(), supplierID, c.Query("filter"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Inbox retrieved", view)
}

type markReadRequest struct {
	Type string `json:"type" binding:"required"`
	ID   int    `json:"id" binding:"required"`
}

// MarkRead handles POST /v1/inbox/mark-read
func (h *InboxHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	if err := h.inboxService.MarkRead(c.Request.Context(), supplierID, req.Type, req.ID); err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Item marked as read", gin.H{"type": req.Type, "id": req.ID})
}

type replyRequest struct {
	Type  string `json:"type" binding:"required"`
	ID    int    `json:"id" binding:"required"`
	Reply string `json:"reply" binding:"required"`
}

// Reply handles POST /v1/inbox/reply
func (h *InboxHandler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	entry, err := h.inboxService.Reply(c.Request.Context(), supplierID, req.Type, req.ID, req.Reply)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Reply sent", entry)
}

// UnreadCount handles GET /v1/inbox/unread-count
func (h *InboxHandler) UnreadCount(c *gin.Context) {
	supplierID := middleware.GetSupplierID(c)
	count, err := h.inboxService.UnreadCount(c.Request.Context(), supplierID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Unread count retrieved", gin.H{"unreadCount": count})
}

type sendInquiryRequest struct {
	ReceiverSupplierID int    `json:"receiverSupplierId" binding:"required"`
	Subject            string `json:"subject" binding:"required"`
	Message            string `json:"message" binding:"required"`
}

// SendInquiry handles POST /v1/inquiries
func (h *InboxHandler) SendInquiry(c *gin.Context) {
	var req sendInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	entry, err := h.inboxService.SendInquiry(c.Request.Context(), supplierID, req.ReceiverSupplierID, req.Subject, req.Message)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Inquiry sent", entry)
}

// InquiryThread handles GET /v1/inbox/thread/:id
func (h *InboxHandler) InquiryThread(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid inquiry id")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	thread, err := h.inboxService.InquiryThread(c.Request.Context(), supplierID, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Thread retrieved", gin.H{"thread": thread})
}

type submitRatingRequest struct {
	RatedSupplierID int    `json:"ratedSupplierId" binding:"required"`
	Score           int    `json:"score" binding:"required,min=1,max=5"`
	Comment         string `json:"comment"`
}

// SubmitRating handles POST /v1/ratings
func (h *InboxHandler) SubmitRating(c *gin.Context) {
	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	rating, err := h.inboxService.SubmitRating(c.Request.Context(), supplierID, req.RatedSupplierID, req.Score, req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Rating submitted for review", rating)
}

type sendMessageRequest struct {
	ReceiverSupplierID int    `json:"receiverSupplierId" binding:"required"`
	Subject            string `json:"subject" binding:"required"`
	Body               string `json:"body" binding:"required"`
}

// SendMessage handles POST /v1/messages
func (h *InboxHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	supplierID := middleware.GetSupplierID(c)
	entry, err := h.inboxService.SendMessage(c.Request.Context(), supplierID, req.ReceiverSupplierID, req.Subject, req.Body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 201, "Message sent", entry)
}

func (h *InboxHandler) handleError(c *gin.Context, err error) {
	switch err {
	case utils.ErrValidation:
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid request")
	case utils.ErrInvalidType:
		utils.Error(c, 400, "INVALID_TYPE", "Type must be 'inquiry', 'message', or 'rating'")
	case utils.ErrForbidden:
		utils.Error(c, 403, "FORBIDDEN", "You do not have access to this item")
	case utils.ErrNotFound:
		utils.Error(c, 404, "NOT_FOUND", "Item not found")
	case utils.ErrAlreadyReplied:
		utils.Error(c, 409, "ALREADY_REPLIED", "This rating already has a reply")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
