package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"halfandhalf/internal/app/dto"
	postsvc "halfandhalf/internal/app/services/posts"
	userssvc "halfandhalf/internal/app/services/users"
	domainpost "halfandhalf/internal/domain/post"
	domainuser "halfandhalf/internal/domain/user"
)

type MeHTTP interface {
	ListPosts(c *gin.Context)
	ListArchive(c *gin.Context)
	Repost(c *gin.Context)
	RemoveArchive(c *gin.Context)
	Blacklist(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
}

// MeHandler serves the caller's own resources: posts, the local
// archive of expired posts, and the blacklist.
type MeHandler struct {
	Posts  *postsvc.Service
	Users  *userssvc.Service
	Logger *slog.Logger
}

func (h MeHandler) ListPosts(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	posts, err := h.Posts.ListMine(c.Request.Context(), p.ID)
	if err != nil {
		h.respondMeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": dto.MapPosts(posts)})
}

func (h MeHandler) ListArchive(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	archived, err := h.Posts.ListArchive(c.Request.Context(), p.ID)
	if err != nil {
		h.respondMeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archive": dto.MapArchivedPosts(archived)})
}

// Repost republishes an archived post with a fresh 30-minute window.
func (h MeHandler) Repost(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	post, err := h.Posts.Repost(c.Request.Context(), p.ID, c.Param("id"))
	if err != nil {
		h.respondMeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapPost(post))
}

func (h MeHandler) RemoveArchive(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Posts.RemoveArchive(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		h.respondMeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MeHandler) Blacklist(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	ids, err := h.Users.Blacklist(c.Request.Context(), p.ID)
	if err != nil {
		h.respondMeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBlacklist(ids))
}

func (h MeHandler) Block(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Users.Block(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		h.respondMeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MeHandler) Unblock(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Users.Unblock(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		h.respondMeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MeHandler) respondMeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainpost.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domainuser.ErrSelfBlock),
		errors.Is(err, domainuser.ErrIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("profile operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ MeHTTP = (*MeHandler)(nil)
