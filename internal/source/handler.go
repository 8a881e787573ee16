package source

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatsim/internal/auth"
	"chatsim/pkg/utils"
)

type Handler struct {
	Registry    *Registry
	States      *StateRepo
	DefaultLang string
}

func NewHandler(reg *Registry, states *StateRepo, defaultLang string) *Handler {
	return &Handler{Registry: reg, States: states, DefaultLang: defaultLang}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sources", h.list)
	rg.PUT("/sources/:key", h.update)
}

type toggleView struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Tag    string `json:"tag"`
	Active bool   `json:"active"`
}

type groupView struct {
	GroupKey string       `json:"group_key"`
	Label    string       `json:"label"`
	Filters  []toggleView `json:"filters"`
}

type stateView struct {
	Key     string      `json:"key"`
	Name    string      `json:"name"`
	Enabled bool        `json:"enabled"`
	Groups  []groupView `json:"groups"`
}

func viewState(st State, lang string) stateView {
	v := stateView{
		Key:     st.Key(),
		Name:    st.Source.Name(),
		Enabled: st.Enabled,
		Groups:  make([]groupView, 0, len(st.Filters)),
	}
	for _, g := range st.Filters {
		gv := groupView{
			GroupKey: g.GroupKey,
			Label:    st.Source.Label(g.GroupName, lang),
			Filters:  make([]toggleView, 0, len(g.Filters)),
		}
		for _, f := range g.Filters {
			gv.Filters = append(gv.Filters, toggleView{
				Name:   f.Name,
				Label:  st.Source.Label(f.Name, lang),
				Tag:    f.Tag,
				Active: f.Active,
			})
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

func (h *Handler) list(c *gin.Context) {
	states, err := h.States.Load(c.Request.Context(), auth.PlayerID(c), h.Registry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load sources failed"})
		return
	}

	lang := utils.RequestLang(c.Request, h.DefaultLang)
	items := make([]stateView, 0, len(states))
	for _, st := range states {
		items = append(items, viewState(st, lang))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type groupUpdate struct {
	GroupKey string `json:"group_key"`
	Active   []bool `json:"active"`
}

type updateReq struct {
	Enabled *bool         `json:"enabled"`
	Groups  []groupUpdate `json:"groups"`
}

func (h *Handler) update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if _, ok := h.Registry.Get(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	playerID := auth.PlayerID(c)
	states, err := h.States.Load(c.Request.Context(), playerID, h.Registry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load sources failed"})
		return
	}

	var st State
	for _, s := range states {
		if s.Key() == key {
			st = s
			break
		}
	}

	if req.Enabled != nil {
		st.Enabled = *req.Enabled
	}
	for _, gu := range req.Groups {
		st = applyGroupUpdate(st, gu)
	}

	if err := h.States.Save(c.Request.Context(), playerID, st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusOK, viewState(st, utils.RequestLang(c.Request, h.DefaultLang)))
}

// applyGroupUpdate sets toggles positionally; extra flags are ignored and
// missing ones leave the toggle unchanged.
func applyGroupUpdate(st State, gu groupUpdate) State {
	for gi := range st.Filters {
		if st.Filters[gi].GroupKey != gu.GroupKey {
			continue
		}
		for fi := range st.Filters[gi].Filters {
			if fi < len(gu.Active) && st.Filters[gi].Filters[fi].Active != gu.Active[fi] {
				st = st.Toggle(gu.GroupKey, fi)
			}
		}
	}
	return st
}
