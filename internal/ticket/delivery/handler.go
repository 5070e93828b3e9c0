package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/internal/ticket/usecase"
)

// TicketHandler exposes the ticket board and its administrative surfaces.
type TicketHandler struct {
	service *usecase.TicketService
}

func NewTicketHandler(service *usecase.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tickets := rg.Group("/tickets")
	{
		tickets.GET("", h.List)
		tickets.GET("/counts", h.Counts)
		tickets.GET("/:threadId", h.Get)
		tickets.GET("/:threadId/thread", h.Thread)
		tickets.PATCH("/:threadId/status", h.SetStatus)
		tickets.PATCH("/:threadId/priority", h.SetPriority)
		tickets.POST("/:threadId/reply", h.Reply)
		tickets.POST("/:threadId/draft", h.Draft)
		tickets.POST("/:threadId/classify", h.Classify)
		tickets.DELETE("", h.ClearAll)
	}

	blacklist := rg.Group("/blacklist")
	{
		blacklist.GET("", h.ListBlacklist)
		blacklist.POST("", h.AddToBlacklist)
		blacklist.DELETE("/:email", h.RemoveFromBlacklist)
	}

	settings := rg.Group("/settings")
	{
		settings.GET("/signature", h.GetSignature)
		settings.PUT("/signature", h.SetSignature)
	}
}

func (h *TicketHandler) List(c *gin.Context) {
	q := repository.TicketQuery{
		AwaitingOnly: c.Query("awaiting") == "true",
		UnreadOnly:   c.Query("unread") == "true",
		Status:       ticketdomain.TicketStatus(c.Query("status")),
		Category:     ticketdomain.TicketCategory(c.Query("category")),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		q.Offset = offset
	}

	tickets, total, err := h.service.List(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": total})
}

func (h *TicketHandler) Counts(c *gin.Context) {
	counts, err := h.service.Counts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *TicketHandler) Get(c *gin.Context) {
	ticket, err := h.service.Get(c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Thread(c *gin.Context) {
	detail, err := h.service.ThreadDetail(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type statusRequest struct {
	Status ticketdomain.TicketStatus `json:"status" binding:"required"`
}

func (h *TicketHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	ticket, err := h.service.SetStatus(c.Param("threadId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type priorityRequest struct {
	Priority ticketdomain.Priority `json:"priority" binding:"required"`
}

func (h *TicketHandler) SetPriority(c *gin.Context) {
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority is required"})
		return
	}
	ticket, err := h.service.SetPriority(c.Param("threadId"), req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type replyRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

func (h *TicketHandler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}
	ticket, err := h.service.Reply(c.Request.Context(), c.Param("threadId"), req.To, req.Subject, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Draft(c *gin.Context) {
	ticket, err := h.service.Draft(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread_id": ticket.ThreadID,
		"subject":   ticket.AIDraftSubject,
		"body":      ticket.AIDraftBody,
	})
}

func (h *TicketHandler) Classify(c *gin.Context) {
	ticket, err := h.service.Classify(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) ClearAll(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pass confirm=true to clear all tickets"})
		return
	}
	if err := h.service.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (h *TicketHandler) ListBlacklist(c *gin.Context) {
	entries, err := h.service.ListBlacklist()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blacklist": entries})
}

type blacklistRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *TicketHandler) AddToBlacklist(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	entry, err := h.service.AddToBlacklist(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *TicketHandler) RemoveFromBlacklist(c *gin.Context) {
	if err := h.service.RemoveFromBlacklist(c.Param("email")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (h *TicketHandler) GetSignature(c *gin.Context) {
	signature, err := h.service.Signature()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": signature})
}

type signatureRequest struct {
	Signature string `json:"signature"`
}

func (h *TicketHandler) SetSignature(c *gin.Context) {
	var req signatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature payload"})
		return
	}
	if err := h.service.SetSignature(req.Signature); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": req.Signature})
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ticketdomain.ErrTicketNotFound),
		errors.Is(err, mailboxdomain.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ticketdomain.ErrInvalidStatus),
		errors.Is(err, ticketdomain.ErrInvalidPriority),
		errors.Is(err, ticketdomain.ErrEmptyReply),
		errors.Is(err, ticketdomain.ErrNoRecipient):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, mailboxdomain.ErrMailboxNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "mailbox not connected"})
	case errors.Is(err, mailboxdomain.ErrSendRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
