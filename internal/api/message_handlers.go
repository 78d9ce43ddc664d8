package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/service"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) listConversations(c *gin.Context) {
	conversations, err := h.messages.ListConversations(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// startConversation answers 201 for a new conversation and 200 when the
// existing one for the same customer, seller and product is returned
func (h *Handler) startConversation(c *gin.Context) {
	var req service.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	conv, created, err := h.messages.StartConversation(c.Request.Context(), currentUserID(c), currentRole(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conv)
}

func (h *Handler) getConversation(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	conv, err := h.messages.GetConversation(c.Request.Context(), currentUserID(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handler) listMessages(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	messages, err := h.messages.ListMessages(c.Request.Context(), currentUserID(c), convID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// sendMessage takes JSON {"text"} or a multipart form with a "text" field and
// an optional "attachment" file
func (h *Handler) sendMessage(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var (
		text       string
		attachment *service.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text = c.PostForm("text")
		if _, err := c.FormFile("attachment"); err == nil {
			upload, closeUpload, ok := formUpload(c, "attachment")
			if !ok {
				return
			}
			defer closeUpload()
			attachment = upload
		}
	} else {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
		text = req.Text
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), currentUserID(c), convID, text, attachment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) markRead(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	n, err := h.messages.MarkMessagesAsRead(c.Request.Context(), currentUserID(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *Handler) updateConversationStatus(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	conv, err := h.messages.UpdateConversationStatus(c.Request.Context(), currentUserID(c), convID, models.ConversationStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.messages.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// streamConversation pushes live events for one conversation as SSE
func (h *Handler) streamConversation(c *gin.Context) {
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.messages.GetConversation(c.Request.Context(), currentUserID(c), convID); err != nil {
		respondError(c, err)
		return
	}
	h.stream(c, realtime.ConversationChannel(convID))
}

// streamNotifications pushes events addressed to the caller: new orders for
// sellers, status changes for customers, unread counts for both
func (h *Handler) streamNotifications(c *gin.Context) {
	h.stream(c, realtime.UserChannel(currentUserID(c)))
}

func (h *Handler) stream(c *gin.Context, channels ...string) {
	ctx := c.Request.Context()
	sub, err := h.hub.Subscribe(ctx, channels...)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent(n.Type, n)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": t.Unix()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
