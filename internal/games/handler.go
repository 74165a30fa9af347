package games

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamedex/internal/logging"
)

type Handler struct {
	Repo *Repo
	log  zerolog.Logger
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo, log: logging.With("games")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /games
	rg.GET("/:id", h.getByID) // GET /games/:id
}

// list answers with a bare JSON array. The total before paging is sent in
// X-Total-Count.
func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Slug:     c.Query("slug"),
		Limit:    parseInt(c.Query("limit"), 0),
		Offset:   parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("count games")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("list games")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getByID(c *gin.Context) {
	id := c.Param("id")
	g, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("get game")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
