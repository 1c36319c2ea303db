package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"halfandhalf/internal/app/dto"
	postsvc "halfandhalf/internal/app/services/posts"
	"halfandhalf/internal/domain/geo"
	domainpost "halfandhalf/internal/domain/post"
)

type PostHTTP interface {
	Catalog(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type PostHandler struct {
	Service *postsvc.Service
	Logger  *slog.Logger
}

type createPostRequest struct {
	Store     string  `json:"store"`
	Item      string  `json:"item"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	// HasLocation distinguishes a real (0,0) coordinate from an
	// omitted one.
	HasLocation bool `json:"has_location"`
}

type updatePostRequest struct {
	Store     string `json:"store"`
	Item      string `json:"item"`
	Date      string `json:"date"`
	ClearDate bool   `json:"clear_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Catalog lists visible posts for the caller. Query params: store
// (substring filter), lat and lon together (nearby filter).
func (h PostHandler) Catalog(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	filters := postsvc.Filters{Store: c.Query("store")}
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw != "" || lonRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must both be valid numbers"})
			return
		}
		filters.Location = &geo.Point{Lat: lat, Lon: lon}
	}
	posts, err := h.Service.ListVisible(c.Request.Context(), p.ID, filters)
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": dto.MapPosts(posts)})
}

func (h PostHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params := postsvc.CreateParams{
		Store:      req.Store,
		Item:       req.Item,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		OwnerID:    p.ID,
		OwnerEmail: p.Email,
	}
	if req.HasLocation {
		params.Location = &geo.Point{Lat: req.Lat, Lon: req.Lon}
	}
	post, err := h.Service.Create(c.Request.Context(), params)
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapPost(post))
}

func (h PostHandler) Get(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	post, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPost(post))
}

func (h PostHandler) Update(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	post, err := h.Service.Update(c.Request.Context(), c.Param("id"), p.ID, domainpost.UpdateParams{
		Store:     req.Store,
		Item:      req.Item,
		Date:      req.Date,
		ClearDate: req.ClearDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.respondPostError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPost(post))
}

func (h PostHandler) Delete(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		h.respondPostError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h PostHandler) respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainpost.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, domainpost.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the post owner"})
	case errors.Is(err, domainpost.ErrStoreRequired),
		errors.Is(err, domainpost.ErrItemRequired),
		errors.Is(err, domainpost.ErrEndTimeRequired),
		errors.Is(err, domainpost.ErrInvalidDate),
		errors.Is(err, domainpost.ErrInvalidTime):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("post operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ PostHTTP = (*PostHandler)(nil)
