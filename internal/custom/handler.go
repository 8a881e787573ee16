package custom

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatsim/internal/auth"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/custom", h.list)
	rg.POST("/custom", h.create)
	rg.GET("/custom/:id", h.getOne)
}

type createReq struct {
	Names       map[string]string `json:"names"`
	ShortNames  map[string]string `json:"short_names"`
	Images      []string          `json:"images"`
	Description string            `json:"description"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	names := trimMap(req.Names)
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one name required"})
		return
	}

	var images []string
	for _, img := range req.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image required"})
		return
	}

	ch := Character{
		OwnerID:     auth.PlayerID(c),
		ID:          IDPrefix + uuid.NewString(),
		Names:       names,
		ShortNames:  trimMap(req.ShortNames),
		Images:      images,
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.Repo.Create(c.Request.Context(), ch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, ch.Model())
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.Characters(c.Request.Context(), auth.PlayerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) getOne(c *gin.Context) {
	ch, err := h.Repo.Get(c.Request.Context(), auth.PlayerID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ch.Model())
}

func trimMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		k = strings.TrimSpace(strings.ToLower(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
