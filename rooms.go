/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Rolebox Classroom Role Draw
//
// The class host pastes (or types) the class list, separated by commas or line
// breaks, and presses "Draw". Every student is handed one of eight fixed
// classroom roles; with more students than roles, roles are handed out again
// from a fresh copy of the set. With no names at all, a single role is drawn.
//
// Features:
// - One room per browser session: /path/:roomid, /path/:roomid/ws
// - Every screen connected to a room (projector, phone) sees the same draw
// - Draw history kept in memory only, newest first, capped by --history-size
// - "Clear" wipes the history and the current result
// - Rooms auto-reaped after --session-timeout of inactivity
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - Plain JSON endpoints for draw/clear/state alongside the websocket
// - QR button to open the current room on another device, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/rolebox/games/roles"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type  string `json:"type"`            // "names", "draw", "clear"
	Names string `json:"names,omitempty"` // names / draw
}

// StateMessage carries everything a screen needs to render the room.
type StateMessage struct {
	Type         string        `json:"type"` // "state"
	Roles        []string      `json:"roles"`
	Names        string        `json:"names"`
	NameCount    int           `json:"name_count"`
	RoleCount    int           `json:"role_count"`
	Warning      string        `json:"warning,omitempty"`
	Result       *roles.Result `json:"result,omitempty"`
	History      []roles.Entry `json:"history"`
	HistoryLimit int           `json:"history_limit"`
}

// SimpleMessage is for generic notifications ("cleared", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

// action is a request against a room. Websocket actions carry the sending
// client; HTTP actions carry a reply channel instead.
type action struct {
	client *Client
	msg    ClientMessage
	reply  chan StateMessage
}

type Room struct {
	id      string
	clients map[*Client]bool

	session   roles.Session
	namesText string
	src       roles.Source
	metrics   *Metrics

	register chan *Client
	unreg    chan *Client
	actions  chan action
	done     chan struct{}

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(roomID string, historySize int, src roles.Source, m *Metrics) *Room {
	now := time.Now()
	return &Room{
		id:         roomID,
		clients:    make(map[*Client]bool),
		session:    roles.NewSession(historySize),
		src:        src,
		metrics:    m,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan action),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) run(cfg *Config) {
	for {
		select {
		case c := <-r.register:
			r.mu.Lock()
			r.lastActive = time.Now()
			r.clients[c] = true
			state := r.stateLocked()
			r.mu.Unlock()

			c.send <- state

		case c := <-r.unreg:
			r.mu.Lock()
			r.lastActive = time.Now()

			if _, ok := r.clients[c]; ok {
				delete(r.clients, c)
				close(c.send)
			}
			r.mu.Unlock()

		case a := <-r.actions:
			r.handleAction(cfg, a)

		case <-r.done:
			return
		}
	}
}

// submit hands an HTTP action to the room loop and waits for the resulting state.
func (r *Room) submit(req *http.Request, msg ClientMessage) (StateMessage, bool) {
	reply := make(chan StateMessage, 1)

	select {
	case r.actions <- action{msg: msg, reply: reply}:
	case <-r.done:
		return StateMessage{}, false
	case <-req.Context().Done():
		return StateMessage{}, false
	}

	select {
	case state := <-reply:
		return state, true
	case <-r.done:
		return StateMessage{}, false
	}
}

// stateLocked assumes r.mu is already held.
func (r *Room) stateLocked() StateMessage {
	roleSet := roles.Default()
	names := roles.ParseNames(r.namesText)

	msg := StateMessage{
		Type:         "state",
		Roles:        roleSet,
		Names:        r.namesText,
		NameCount:    len(names),
		RoleCount:    len(roleSet),
		History:      r.session.Snapshot(),
		HistoryLimit: r.session.Limit(),
	}

	if roles.RolesRepeat(len(names), roleSet) {
		msg.Warning = roles.RepeatWarning
	}

	if last, ok := r.session.Last(); ok {
		msg.Result = &last
	}

	return msg
}

// broadcastLocked assumes r.mu is already held.
func (r *Room) broadcastLocked(msg any) {
	for client := range r.clients {
		select {
		case client.send <- msg:
		default:
			delete(r.clients, client)
			close(client.send)
		}
	}
}

// handleAction processes "names", "draw" and "clear" requests.
func (r *Room) handleAction(cfg *Config, a action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	switch a.msg.Type {
	case "names":
		r.namesText = a.msg.Names

		// The sender may already have been evicted by a broadcast.
		if _, ok := r.clients[a.client]; ok {
			select {
			case a.client.send <- r.stateLocked():
			default:
				delete(r.clients, a.client)
				close(a.client.send)
			}
		}

	case "draw":
		r.namesText = a.msg.Names
		names := roles.ParseNames(r.namesText)

		var result roles.Result
		result, r.session = roles.DrawAssignment(names, r.session, r.src, time.Now())

		r.metrics.observeDraw(result)

		if result.IsSolo() {
			logf(cfg, "ROLES: Drew %q in %s", result.Role, r.id)
		} else {
			logf(cfg, "ROLES: Assigned %d roles in %s", len(result.Assignments), r.id)
		}

		r.broadcastLocked(r.stateLocked())

	case "clear":
		r.session = roles.ClearSession(r.session)

		r.metrics.observeClear()

		logf(cfg, "ROLES: Cleared history in %s", r.id)

		r.broadcastLocked(SimpleMessage{
			Type:    "cleared",
			Message: "History cleared. Draw again!",
		})
		r.broadcastLocked(r.stateLocked())

	default:
		// ignore unknown types
	}

	if a.reply != nil {
		a.reply <- r.stateLocked()
	}
}

// closeAll disconnects all clients of this room and stops its loop (used by reaper).
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	close(r.done)

	for c := range r.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(r.clients, c)
	}
}

const maxBodySize = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RoomManager holds a set of rooms keyed by room ID, so each $path/$roomid
// is its own isolated session.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
	historySize int
	src         roles.Source
	metrics     *Metrics
}

func newRoomManager(cfg *Config, m *Metrics) *RoomManager {
	rm := &RoomManager{
		rooms:       make(map[string]*Room),
		idleTimeout: cfg.sessionTimeout,
		historySize: cfg.historySize,
		src:         roles.NewSource(),
		metrics:     m,
	}

	if rm.idleTimeout > 0 {
		go rm.reaperLoop(cfg)
	}

	return rm
}

func (rm *RoomManager) getRoom(cfg *Config, roomID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[roomID]; ok {
		return room
	}

	room := newRoom(roomID, rm.historySize, rm.src, rm.metrics)
	rm.rooms[roomID] = room
	rm.metrics.rooms.Set(float64(len(rm.rooms)))

	go room.run(cfg)

	return room
}

func randomRoomID(n int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// newRoomID generates a crypto-random room ID and ensures it doesn't
// collide with existing rooms.
func (rm *RoomManager) newRoomID() string {
	for {
		id := randomRoomID(8)

		rm.mu.Lock()
		_, exists := rm.rooms[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes rooms idle since before cutoff. Rooms with a connected
// screen are never reaped.
func (rm *RoomManager) reap(cfg *Config, cutoff time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, room := range rm.rooms {
		room.mu.RLock()
		last := room.lastActive
		watched := len(room.clients) > 0
		room.mu.RUnlock()

		if !watched && last.Before(cutoff) {
			delete(rm.rooms, id)
			go room.closeAll()

			logf(cfg, "ROLES: Reaped idle room %s", id)
		}
	}

	rm.metrics.rooms.Set(float64(len(rm.rooms)))
}

// reaperLoop periodically removes rooms that have been idle longer than idleTimeout.
func (rm *RoomManager) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		rm.reap(cfg, time.Now().Add(-rm.idleTimeout))
	}
}

// WebSocket handler that picks the room based on :roomid
func serveWSForManager(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		room := rm.getRoom(cfg, roomID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case room.register <- client:
		case <-room.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(room)
	}
}

func (c *Client) readPump(room *Room) {
	defer func() {
		select {
		case room.unreg <- c:
		case <-room.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "names", "draw", "clear":
			select {
			case room.actions <- action{client: c, msg: msg}:
			case <-room.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// namesFromRequest reads the raw names text from a JSON or form body.
func namesFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var msg ClientMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&msg); err != nil {
			return "", err
		}

		return msg.Names, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		return "", err
	}

	return r.PostForm.Get("names"), nil
}

func writeState(cfg *Config, w http.ResponseWriter, r *http.Request, state StateMessage, errs chan<- error) {
	startTime := time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		errs <- err

		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	written, err := w.Write(data)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: Room state (%s) to %s in %s",
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func serveState(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := rm.getRoom(cfg, ps.ByName("roomid"))

		room.mu.RLock()
		state := room.stateLocked()
		room.mu.RUnlock()

		writeState(cfg, w, r, state, errs)
	}
}

func serveDraw(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		names, err := namesFromRequest(w, r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		room := rm.getRoom(cfg, ps.ByName("roomid"))

		state, ok := room.submit(r, ClientMessage{Type: "draw", Names: names})
		if !ok {
			http.Error(w, "room closed", http.StatusGone)
			return
		}

		writeState(cfg, w, r, state, errs)
	}
}

func serveClear(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := rm.getRoom(cfg, ps.ByName("roomid"))

		state, ok := room.submit(r, ClientMessage{Type: "clear"})
		if !ok {
			http.Error(w, "room closed", http.StatusGone)
			return
		}

		writeState(cfg, w, r, state, errs)
	}
}

// roomURL rebuilds the room address from a /.../:roomid/qr request. Only
// http and https are honoured from X-Forwarded-Proto.
func roomURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		scheme = proto
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(roomURL(r), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed roles/index.html
var indexHTML []byte

//go:embed roles/app.css
var rolesCSS []byte

//go:embed roles/app.js
var rolesJS []byte

func serveStatic(cfg *Config, contentType string, data []byte) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// redirectNewRoom handles GET /path by generating a new random room ID
// (with server-side collision detection) and redirecting to /path/:roomid.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rm.newRoomID()

		logf(cfg, "ROLES: Created room %s/%s", path, roomID)

		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerRoles sets up routes so that:
//   - $path                  → redirects to new random room (8-char ID)
//   - $path/:roomid          → HTML client
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/state    → JSON state
//   - $path/:roomid/draw     → POST, draw roles for the submitted names
//   - $path/:roomid/clear    → POST, wipe history and result
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerRoles(cfg *Config, path string, mux *httprouter.Router, rm *RoomManager, errs chan<- error) {
	// Root path → redirect to new random room
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm))

	// Per-room client view (HTML)
	mux.GET(cfg.prefix+path+"/:roomid", serveStatic(cfg, "text/html; charset=utf-8", indexHTML))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/roles/app.css", serveStatic(cfg, "text/css; charset=utf-8", rolesCSS))
	mux.GET(cfg.prefix+"/assets/roles/app.js", serveStatic(cfg, "application/javascript; charset=utf-8", rolesJS))

	// Per-room JSON endpoints
	mux.GET(cfg.prefix+path+"/:roomid/state", serveState(cfg, rm, errs))
	mux.POST(cfg.prefix+path+"/:roomid/draw", serveDraw(cfg, rm, errs))
	mux.POST(cfg.prefix+path+"/:roomid/clear", serveClear(cfg, rm, errs))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWSForManager(cfg, rm))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)
}
