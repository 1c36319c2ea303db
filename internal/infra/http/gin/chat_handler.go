package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"halfandhalf/internal/app/dto"
	chatsvc "halfandhalf/internal/app/services/chat"
	domainchat "halfandhalf/internal/domain/chat"
	domainpost "halfandhalf/internal/domain/post"
)

type ChatHTTP interface {
	Open(c *gin.Context)
	List(c *gin.Context)
	Stream(c *gin.Context)
	Messages(c *gin.Context)
	Send(c *gin.Context)
	Read(c *gin.Context)
	Leave(c *gin.Context)
}

type ChatHandler struct {
	Service *chatsvc.Service
	Logger  *slog.Logger
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// Open resolves the caller's session with a post's owner without
// creating it. The returned id is stable: sending to it materializes
// the session.
func (h ChatHandler) Open(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	info, err := h.Service.Open(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	sess := info.Session
	c.JSON(http.StatusOK, dto.ChatOpened{
		SessionID:    sess.ID,
		PostID:       sess.PostID,
		PostStore:    sess.PostStore,
		PostItem:     sess.PostItem,
		Participants: []string{sess.Participants[0], sess.Participants[1]},
		Exists:       info.Exists,
	})
}

// List returns the caller's active sessions, most recent activity
// first.
func (h ChatHandler) List(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	refs, err := h.Service.ListSessions(c.Request.Context(), p.ID)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": dto.MapChatSessions(refs)})
}

// Stream pushes session-ref updates to the caller as server-sent
// events until the client disconnects.
func (h ChatHandler) Stream(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	sub := h.Service.Watch(p.ID)
	defer sub.Cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case u, open := <-sub.C:
			if !open {
				return
			}
			payload := dto.ChatUpdate{SessionID: u.SessionID, Removed: u.Removed}
			if u.Ref != nil {
				sess := dto.MapChatSession(u.Ref)
				payload.Session = &sess
			}
			c.SSEvent("update", payload)
			c.Writer.Flush()
		}
	}
}

func (h ChatHandler) Messages(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
			return
		}
		before = parsed
	}
	messages, err := h.Service.ListMessages(c.Request.Context(), c.Param("id"), p.ID, limit, before)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": dto.MapChatMessages(messages)})
}

func (h ChatHandler) Send(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	msg, err := h.Service.SendMessage(c.Request.Context(), c.Param("id"), p.ID, req.Text)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapChatMessage(msg))
}

func (h ChatHandler) Read(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Service.MarkRead(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		h.respondChatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) Leave(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Service.Leave(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		h.respondChatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainchat.ErrSessionNotFound),
		errors.Is(err, domainpost.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainchat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	case errors.Is(err, domainchat.ErrSelfChat):
		c.JSON(http.StatusConflict, gin.H{"error": "cannot chat on your own post"})
	case errors.Is(err, domainchat.ErrEmptyText),
		errors.Is(err, domainchat.ErrInvalidSessionID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
