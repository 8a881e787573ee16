package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatsim/internal/auth"
	"chatsim/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errEmptyContent = errors.New("content is required")

// CurrentAuthor reports who writes the next message; nil means the player.
type CurrentAuthor interface {
	Current(ctx context.Context, playerID string) (*models.ChatChar, error)
}

type Handler struct {
	Repo    *Repo
	Hub     *Hub
	Authors CurrentAuthor
}

func NewHandler(repo *Repo, hub *Hub, authors CurrentAuthor) *Handler {
	return &Handler{Repo: repo, Hub: hub, Authors: authors}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat", h.list)
	rg.POST("/chat", h.compose)
	rg.DELETE("/chat/:id", h.delete)
	rg.GET("/chat/ws", h.ws)
}

type composeReq struct {
	Content   string `json:"content"`
	IsImage   bool   `json:"is_image"`
	InsertIdx *int   `json:"insert_idx"`
}

// post authors a message with the current character and stores it.
func (h *Handler) post(ctx context.Context, playerID string, req composeReq) (models.ChatItem, int, error) {
	// stored as typed; only blank messages are refused
	if strings.TrimSpace(req.Content) == "" {
		return models.ChatItem{}, 0, errEmptyContent
	}

	cur, err := h.Authors.Current(ctx, playerID)
	if err != nil {
		return models.ChatItem{}, 0, err
	}
	item := models.ChatItem{Content: req.Content, IsImage: req.IsImage}
	if cur != nil {
		item.Char = cur.Ref()
	}

	idx := -1
	if req.InsertIdx != nil {
		idx = *req.InsertIdx
	}
	item, next, err := h.Repo.Add(ctx, playerID, item, idx)
	if err != nil {
		return models.ChatItem{}, 0, err
	}

	h.Hub.Broadcast(playerID, Event{Type: EventAdd, Item: &item})
	return item, next, nil
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context(), auth.PlayerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}

func (h *Handler) compose(c *gin.Context) {
	var req composeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	item, next, err := h.post(c.Request.Context(), auth.PlayerID(c), req)
	if err != nil {
		if errors.Is(err, errEmptyContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[chat] compose: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compose failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"item":            item,
		"next_insert_idx": next,
	})
}

func (h *Handler) delete(c *gin.Context) {
	playerID := auth.PlayerID(c)
	id := strings.TrimSpace(c.Param("id"))

	ok, err := h.Repo.Delete(c.Request.Context(), playerID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Hub.Broadcast(playerID, Event{Type: EventDelete, ItemID: id})
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ws streams the player's chat. The first frame is a snapshot of the history;
// after that every change is pushed. Frames sent by the client are composed
// like POST /chat.
func (h *Handler) ws(c *gin.Context) {
	playerID := auth.PlayerID(c)
	ctx := c.Request.Context()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	err = h.Hub.Subscribe(playerID, ws, func() ([]models.ChatItem, error) {
		return h.Repo.List(ctx, playerID)
	})
	if err != nil {
		log.Printf("[chat-ws] subscribe player %s: %v", playerID, err)
		_ = ws.Close()
		return
	}
	log.Printf("[chat-ws] player %s joined", playerID)

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var req composeReq
		if err := json.Unmarshal(payload, &req); err != nil {
			req = composeReq{Content: string(payload)}
		}
		if strings.TrimSpace(req.Content) == "" {
			continue
		}
		if _, _, err := h.post(context.Background(), playerID, req); err != nil {
			log.Printf("[chat-ws] compose: %v", err)
			_ = h.Hub.Send(ws, Event{Type: EventError, Error: "compose failed"})
		}
	}

	h.Hub.Leave(playerID, ws)
	log.Printf("[chat-ws] player %s left", playerID)
}
