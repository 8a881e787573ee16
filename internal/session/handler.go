package session

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatsim/internal/auth"
	"chatsim/internal/roster"
	synchub "chatsim/internal/sync"
	"chatsim/pkg/models"
	"chatsim/pkg/utils"
)

// Publisher receives roster events after each transition.
type Publisher interface {
	Publish(ev synchub.RosterEvent)
}

type Handler struct {
	Sessions    *Manager
	Events      Publisher
	DefaultLang string
}

func NewHandler(sessions *Manager, events Publisher, defaultLang string) *Handler {
	return &Handler{Sessions: sessions, Events: events, DefaultLang: defaultLang}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.get)
	rg.POST("/session/chars", h.add)
	rg.DELETE("/session/chars", h.remove)
	rg.PUT("/session/current", h.selectCurrent)
	rg.POST("/session/shortcut", h.shortcut)
	rg.POST("/session/pending/cancel", h.cancel)
	rg.POST("/session/pending/remove-from-row", h.removeFromRow)
	rg.POST("/session/pending/delete", h.deleteFromCatalog)
}

// ChatCharView is an active character with its chosen image resolved.
type ChatCharView struct {
	Character roster.CharacterView `json:"character"`
	Img       string               `json:"img"`
	ImageURL  string               `json:"image_url"`
}

type sessionView struct {
	Active  []ChatCharView        `json:"active"`
	Current *ChatCharView         `json:"current"`
	Pending *roster.CharacterView `json:"pending"`
}

func newChatCharView(c models.ChatChar, lang string) ChatCharView {
	return ChatCharView{
		Character: roster.NewCharacterView(c.Character, lang),
		Img:       c.Img,
		ImageURL:  c.Character.ImageURL(c.Img),
	}
}

func newSessionView(snap Snapshot, lang string) sessionView {
	v := sessionView{Active: make([]ChatCharView, 0, len(snap.Active))}
	for _, c := range snap.Active {
		v.Active = append(v.Active, newChatCharView(c, lang))
	}
	if snap.Current != nil {
		cur := newChatCharView(*snap.Current, lang)
		v.Current = &cur
	}
	if snap.Pending != nil {
		p := roster.NewCharacterView(*snap.Pending, lang)
		v.Pending = &p
	}
	return v
}

func (h *Handler) store(c *gin.Context) (*Store, bool) {
	s, err := h.Sessions.Get(c.Request.Context(), auth.PlayerID(c))
	if err != nil {
		log.Printf("[session] load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return nil, false
	}
	return s, true
}

func (h *Handler) view(c *gin.Context, s *Store) sessionView {
	return newSessionView(s.Snapshot(), utils.RequestLang(c.Request, h.DefaultLang))
}

func (h *Handler) publish(ev synchub.RosterEvent) {
	if h.Events != nil {
		h.Events.Publish(ev)
	}
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(c, s))
}

type charReq struct {
	CharID string `json:"char_id"`
	Img    string `json:"img"`
}

// resolve looks up the requested character and checks the image belongs to
// it. An empty image picks the character's first one.
func (h *Handler) resolve(c *gin.Context, req charReq) (models.ChatChar, bool) {
	id := strings.TrimSpace(req.CharID)
	ch, found, err := h.Sessions.Lookup.Lookup(c.Request.Context(), auth.PlayerID(c), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return models.ChatChar{}, false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return models.ChatChar{}, false
	}

	img := strings.TrimSpace(req.Img)
	if img == "" && len(ch.Images) > 0 {
		img = ch.Images[0]
	}
	if !ch.HasImage(img) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image does not belong to character"})
		return models.ChatChar{}, false
	}
	return models.NewChatChar(ch, img), true
}

func (h *Handler) add(c *gin.Context) {
	var req charReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.CharID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "char_id is required"})
		return
	}

	s, ok := h.store(c)
	if !ok {
		return
	}
	ch, ok := h.resolve(c, req)
	if !ok {
		return
	}

	added, err := s.Add(c.Request.Context(), ch)
	if err != nil {
		log.Printf("[session] add %s: %v", ch.Character.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
		h.publish(synchub.RosterEvent{
			Type:     synchub.EventRosterAdd,
			PlayerID: s.OwnerID(),
			CharID:   ch.Character.ID,
			Img:      ch.Img,
		})
	}
	c.JSON(status, gin.H{"added": added, "session": h.view(c, s)})
}

func (h *Handler) remove(c *gin.Context) {
	key := models.ChatCharKey{
		CharID: strings.TrimSpace(c.Query("char_id")),
		Img:    strings.TrimSpace(c.Query("img")),
	}
	if key.CharID == "" || key.Img == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "char_id and img are required"})
		return
	}

	s, ok := h.store(c)
	if !ok {
		return
	}

	var target *models.ChatChar
	for _, a := range s.Snapshot().Active {
		if a.Key() == key {
			target = &a
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusOK, gin.H{"result": RemoveNoop, "session": h.view(c, s)})
		return
	}

	res, err := s.Remove(c.Request.Context(), *target)
	if err != nil {
		log.Printf("[session] remove %s: %v", key.CharID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}

	status := http.StatusOK
	ev := synchub.RosterEvent{PlayerID: s.OwnerID(), CharID: key.CharID, Img: key.Img, Result: string(res)}
	switch res {
	case RemovePending:
		status = http.StatusAccepted
		ev.Type = synchub.EventRosterPending
	default:
		ev.Type = synchub.EventRosterRemove
	}
	h.publish(ev)
	c.JSON(status, gin.H{"result": res, "session": h.view(c, s)})
}

func (h *Handler) selectCurrent(c *gin.Context) {
	var req charReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	s, ok := h.store(c)
	if !ok {
		return
	}

	var sel *models.ChatChar
	if strings.TrimSpace(req.CharID) != "" {
		ch, ok := h.resolve(c, req)
		if !ok {
			return
		}
		sel = &ch
	}

	if err := s.Select(c.Request.Context(), sel); err != nil {
		log.Printf("[session] select: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}
	h.publishCurrent(s)
	c.JSON(http.StatusOK, h.view(c, s))
}

func (h *Handler) publishCurrent(s *Store) {
	ev := synchub.RosterEvent{Type: synchub.EventRosterCurrent, PlayerID: s.OwnerID()}
	if cur := s.Snapshot().Current; cur != nil {
		ev.CharID = cur.Character.ID
		ev.Img = cur.Img
	}
	h.publish(ev)
}

type shortcutReq struct {
	N int `json:"n"`
}

func (h *Handler) shortcut(c *gin.Context) {
	var req shortcutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	s, ok := h.store(c)
	if !ok {
		return
	}
	changed, err := s.SelectShortcut(c.Request.Context(), req.N)
	if err != nil {
		log.Printf("[session] shortcut %d: %v", req.N, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}
	if changed {
		h.publishCurrent(s)
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "session": h.view(c, s)})
}

func (h *Handler) cancel(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	cancelled := s.Cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled, "session": h.view(c, s)})
}

func (h *Handler) removeFromRow(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	pending := s.Pending()

	removed, err := s.RemoveFromRow(c.Request.Context())
	if err != nil {
		log.Printf("[session] remove from row: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session failed"})
		return
	}
	if removed && pending != nil {
		h.publish(synchub.RosterEvent{
			Type:     synchub.EventRosterRemove,
			PlayerID: s.OwnerID(),
			CharID:   pending.ID,
			Result:   string(RemoveDone),
		})
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "session": h.view(c, s)})
}

func (h *Handler) deleteFromCatalog(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	pending := s.Pending()

	deleted, err := s.DeleteFromCatalog(c.Request.Context())
	if deleted && pending != nil {
		h.publish(synchub.RosterEvent{
			Type:     synchub.EventCustomDelete,
			PlayerID: s.OwnerID(),
			CharID:   pending.ID,
		})
	}
	if err != nil {
		log.Printf("[session] delete from catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete character failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "session": h.view(c, s)})
}
