package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/route"
	"github.com/apimgr/weatherio/src/search"
)

// Frames sent to the browser
const (
	MsgState           = "state"
	MsgClear           = "clear"
	MsgRegion          = "region"
	MsgCurrentLocation = "current-location"
	MsgReveal          = "reveal"
	MsgSearching       = "searching"
	MsgSearchResults   = "search-results"
	MsgSearchClear     = "search-clear"
	MsgNavigate        = "navigate"
	MsgGeolocate       = "geolocate"
)

// Frames received from the browser
const (
	MsgRoute         = "route"
	MsgPosition      = "position"
	MsgPositionError = "position-error"
	MsgSearch        = "search"
	MsgSelect        = "select"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message is one frame sent to the browser
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is one frame received from the browser
type ClientMessage struct {
	Type  string  `json:"type"`
	Hash  string  `json:"hash,omitempty"`
	Text  string  `json:"text,omitempty"`
	Index int     `json:"index,omitempty"`
	Lat   float64 `json:"lat,omitempty"`
	Lon   float64 `json:"lon,omitempty"`
}

// Session is one browser tab. It owns a render pipeline and a searcher
// whose output is pushed to the tab as HTML fragments.
type Session struct {
	ID       string
	RemoteIP net.IP

	manager *SessionManager
	conn    *websocket.Conn
	send    chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	pipeline *pipeline.Pipeline
	searcher *search.Searcher

	mu      sync.Mutex
	results []search.Result
}

// Send returns the outbound frame queue
func (s *Session) Send() <-chan []byte {
	return s.send
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Handle processes one frame from the browser
func (s *Session) Handle(msg ClientMessage) {
	switch msg.Type {
	case MsgRoute:
		s.route(msg.Hash)

	case MsgPosition:
		coords := models.Coordinates{Latitude: msg.Lat, Longitude: msg.Lon}
		if !coords.Valid() {
			s.manager.logger.Debug("session %s: unusable position %s", s.ID, coords)
			s.fallback()
			return
		}
		s.update(pipeline.Request{Coordinates: coords, CurrentLocation: true})

	case MsgPositionError:
		s.fallback()

	case MsgSearch:
		s.searcher.Input(s.ctx, msg.Text)

	case MsgSelect:
		s.mu.Lock()
		if msg.Index < 0 || msg.Index >= len(s.results) {
			s.mu.Unlock()
			return
		}
		r := s.results[msg.Index]
		s.mu.Unlock()
		s.searcher.Select(r)

	default:
		s.manager.logger.Debug("session %s: unknown message type %q", s.ID, msg.Type)
	}
}

// route follows a location hash
func (s *Session) route(hash string) {
	r, err := route.Parse(hash)
	if err != nil {
		s.manager.logger.Debug("session %s: %q: %v", s.ID, hash, err)
		s.pipeline.NotFound()
		return
	}

	switch r.Kind {
	case route.CurrentLocation:
		// the browser answers with a position or position-error frame
		s.push(MsgGeolocate, nil)
	default:
		s.update(pipeline.Request{Coordinates: r.Coordinates})
	}
}

// fallback handles a failed geolocation: the client IP location if known,
// otherwise the default location
func (s *Session) fallback() {
	if s.manager.locator != nil {
		if coords, ok := s.manager.locator.Locate(s.RemoteIP); ok {
			s.manager.logger.Debug("session %s: located %s by IP", s.ID, coords)
			s.update(pipeline.Request{Coordinates: coords, CurrentLocation: true})
			return
		}
	}

	hash := s.manager.Settings().DefaultHash
	r, err := route.Parse(hash)
	if err != nil || r.Kind != route.Weather {
		hash = route.DefaultHash
		r, _ = route.Parse(hash)
	}
	s.push(MsgNavigate, map[string]interface{}{"hash": hash})
	s.update(pipeline.Request{Coordinates: r.Coordinates})
}

// selected runs when a search entry is chosen
func (s *Session) selected(r search.Result) {
	s.push(MsgNavigate, map[string]interface{}{"hash": r.Href})
	s.update(pipeline.Request{Coordinates: r.Coordinates})
}

// update starts the cycle on the caller's goroutine, so frames handled in
// order are displayed in order, and fetches in the background
func (s *Session) update(req pipeline.Request) {
	cyc := s.pipeline.Start(s.ctx, req)
	go func() {
		result, err := cyc.Run()
		switch {
		case err == nil:
			s.manager.logger.Debug("session %s: cycle %s %s", s.ID, result.CycleID, result.State)
		case errors.Is(err, pipeline.ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			s.manager.logger.Warn("session %s: cycle %s: %v", s.ID, result.CycleID, err)
		}
	}()
}

// push queues a frame. A client that stops reading is disconnected.
func (s *Session) push(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		s.manager.logger.Error("session %s: failed to encode %s: %v", s.ID, msgType, err)
		return
	}

	select {
	case <-s.done:
	case s.send <- payload:
	default:
		// called with the pipeline or searcher lock held
		go s.manager.Remove(s)
	}
}

// Close stops the pipeline and searcher; WritePump then closes the
// connection. It reports whether this call closed the session.
func (s *Session) Close() bool {
	closed := false
	s.closeOnce.Do(func() {
		closed = true
		close(s.done)
		s.cancel()
		s.pipeline.Close()
		s.searcher.Close()
	})
	return closed
}

// ReadPump handles reading messages from the WebSocket connection
func (s *Session) ReadPump() {
	defer s.manager.Remove(s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.manager.Touch(s)
		return nil
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.manager.logger.Warn("session %s: websocket error: %v", s.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.manager.logger.Debug("session %s: invalid message: %v", s.ID, err)
			continue
		}
		s.manager.Touch(s)
		s.Handle(msg)
	}
}

// WritePump handles writing messages to the WebSocket connection
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Coalesce queued messages, one JSON document per line
			n := len(s.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-s.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// display pushes pipeline output to the browser
type display struct {
	s    *Session
	html *render.HTML
}

var _ pipeline.Display = (*display)(nil)

func (d *display) Clear(regions ...pipeline.Region) {
	names := make([]pipeline.Region, 0, len(regions)+1)
	for _, r := range regions {
		names = append(names, r)
		if r == pipeline.RegionCurrent {
			// the location slot lives inside the current card
			names = append(names, pipeline.RegionLocation)
		}
	}
	d.s.push(MsgClear, map[string]interface{}{"regions": names})
}

func (d *display) SetState(state pipeline.State, message string) {
	d.s.push(MsgState, map[string]interface{}{"state": state, "message": message})
}

func (d *display) SetCurrentLocation(active bool) {
	d.s.push(MsgCurrentLocation, map[string]interface{}{"active": active})
}

func (d *display) Render(view pipeline.View) {
	fragment, err := d.html.View(view)
	if err != nil {
		d.s.manager.logger.Error("session %s: %v", d.s.ID, err)
		return
	}
	d.s.push(MsgRegion, map[string]interface{}{"region": view.Region(), "html": fragment})
}

func (d *display) Reveal() {
	d.s.push(MsgReveal, nil)
}

// resultList pushes search output to the browser and remembers the entries
// so a select frame can refer to them by index
type resultList struct {
	s    *Session
	html *render.HTML
}

var _ search.ResultList = (*resultList)(nil)

func (l *resultList) SetSearching(active bool) {
	l.s.push(MsgSearching, map[string]interface{}{"active": active})
}

func (l *resultList) ShowResults(results []search.Result) {
	fragment, err := l.html.SearchResults(results)
	if err != nil {
		l.s.manager.logger.Error("session %s: %v", l.s.ID, err)
		return
	}

	l.s.mu.Lock()
	l.s.results = results
	l.s.mu.Unlock()

	l.s.push(MsgSearchResults, map[string]interface{}{"html": fragment, "count": len(results)})
}

func (l *resultList) Clear() {
	l.s.mu.Lock()
	l.s.results = nil
	l.s.mu.Unlock()

	l.s.push(MsgSearchClear, nil)
}
