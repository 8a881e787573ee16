package roster

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"chatsim/internal/auth"
	"chatsim/pkg/models"
	"chatsim/pkg/utils"
)

type Handler struct {
	Service     *Service
	DefaultLang string
}

func NewHandler(svc *Service, defaultLang string) *Handler {
	return &Handler{Service: svc, DefaultLang: defaultLang}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/characters", h.list)
	rg.GET("/characters/:id", h.getByID)
}

type imageView struct {
	Img string `json:"img"`
	URL string `json:"url"`
}

// CharacterView is a character localized for one request.
type CharacterView struct {
	ID        string               `json:"id"`
	Kind      models.CharacterKind `json:"kind"`
	SourceKey string               `json:"source_key"`
	Name      string               `json:"name"`
	ShortName string               `json:"short_name"`
	Images    []imageView          `json:"images"`
}

func NewCharacterView(ch models.Character, lang string) CharacterView {
	v := CharacterView{
		ID:        ch.ID,
		Kind:      ch.Kind,
		SourceKey: ch.SourceKey,
		Name:      ch.Name(lang),
		ShortName: ch.ShortName(lang),
		Images:    make([]imageView, 0, len(ch.Images)),
	}
	for _, img := range ch.Images {
		v.Images = append(v.Images, imageView{Img: img, URL: ch.ImageURL(img)})
	}
	return v
}

func (h *Handler) list(c *gin.Context) {
	lang := utils.RequestLang(c.Request, h.DefaultLang)
	chars, err := h.Service.Search(c.Request.Context(), auth.PlayerID(c), c.Query("q"), language.Make(lang))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	items := make([]CharacterView, 0, len(chars))
	for _, ch := range chars {
		items = append(items, NewCharacterView(ch, lang))
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ch, ok, err := h.Service.Lookup(c.Request.Context(), auth.PlayerID(c), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, NewCharacterView(ch, utils.RequestLang(c.Request, h.DefaultLang)))
}
