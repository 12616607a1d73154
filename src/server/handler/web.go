package handler

import (
	"bytes"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/render"
)

// WebHandler serves the page shell. Regions are filled over the websocket.
type WebHandler struct {
	html *render.HTML
	page atomic.Pointer[render.PageData]
}

// NewWebHandler creates the page handler
func NewWebHandler(html *render.HTML, page render.PageData) *WebHandler {
	h := &WebHandler{html: html}
	h.SetPage(page)
	return h
}

// SetPage swaps the branding and default location, e.g. after a config reload
func (h *WebHandler) SetPage(page render.PageData) {
	h.page.Store(&page)
}

// Page returns the current page data
func (h *WebHandler) Page() render.PageData {
	return *h.page.Load()
}

// Index handles GET /
func (h *WebHandler) Index(c *gin.Context) {
	page := h.Page()
	page.State = pipeline.Idle
	h.render(c, http.StatusOK, page)
}

// NoRoute answers unknown paths: JSON under /api, the page in its error
// state otherwise
func (h *WebHandler) NoRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		NotFound(c, "Endpoint not found")
		return
	}

	page := h.Page()
	page.State = pipeline.Error
	h.render(c, http.StatusNotFound, page)
}

func (h *WebHandler) render(c *gin.Context, status int, page render.PageData) {
	var buf bytes.Buffer
	if err := h.html.Page(&buf, page); err != nil {
		InternalError(c, "Failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
