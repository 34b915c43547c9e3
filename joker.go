// Joker room server
//
// Each room is a Hub owning one engine.Room. The hub's run loop is the only
// goroutine touching the room, so commands, presence changes and the clock
// are applied one at a time.
//
// Features:
// - WebSockets per room code: /joker/:room and /joker/:room/ws
// - Participants identified by a uuid session cookie
// - Every state change broadcasts the room snapshot to all connections,
//   redacted so that each participant only sees their own secrets
// - Command results are sent only to the connection that issued them
// - Per-connection rate limiting of commands
// - Disconnected participants leave the lobby after a grace period
// - Rooms reaped after a configurable idle timeout
// - Random 5-char room codes via crypto/rand, with server-side collision check
// - Read-only snapshot endpoint and a QR code for sharing the room

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/joker/internal/engine"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 5
	maxRoomCode      = 16

	tickInterval = time.Second
	sendBuffer   = 16
)

var errRateLimited = errors.New("too many commands, slow down")

// SnapshotMessage is the room state as seen from one seat.
type SnapshotMessage struct {
	Type     string           `json:"type"` // "snapshot"
	Seat     int              `json:"seat"` // 0 when not seated
	Host     int              `json:"host"`
	Snapshot *engine.Snapshot `json:"snapshot"`
}

// ResultMessage answers a single command.
type ResultMessage struct {
	Type    string             `json:"type"` // "result"
	Command engine.CommandType `json:"command"`
	engine.Reply
}

// SimpleMessage is for generic notifications ("closed", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn    *websocket.Conn
	send    chan any
	session string
	limiter *rate.Limiter
}

type commandRequest struct {
	client  *Client
	cmd     engine.Command
	limited bool
}

type Hub struct {
	code string
	room *engine.Room

	clients map[*Client]bool

	register   chan *Client
	unreg      chan *Client
	commands   chan commandRequest
	departures chan string

	done      chan struct{}
	closeOnce sync.Once

	playerTimeout time.Duration

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
	public     *engine.Snapshot
	seated     int
}

func newHub(cfg *Config, code string, room *engine.Room) *Hub {
	now := time.Now()

	h := &Hub{
		code:          code,
		room:          room,
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unreg:         make(chan *Client),
		commands:      make(chan commandRequest),
		departures:    make(chan string),
		done:          make(chan struct{}),
		playerTimeout: cfg.playerTimeout,
		createdAt:     now,
		lastActive:    now,
	}
	h.publish(room.Snapshot())

	return h
}

// run serializes everything that touches the room.
func (h *Hub) run(cfg *Config) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.sendTo(client, SimpleMessage{Type: "closed", Message: "This room has been closed."})
				if h.clients[client] {
					delete(h.clients, client)
					close(client.send)
				}
			}

			return
		case c := <-h.register:
			h.clients[c] = true
			h.touch()

			h.sendTo(c, h.viewFor(h.room.Snapshot(), c))
		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			if !h.connected(c.session) && h.playerTimeout > 0 {
				go h.scheduleRemoval(c.session, h.playerTimeout)
			}
		case req := <-h.commands:
			h.handleCommand(cfg, req)
		case session := <-h.departures:
			h.handleDeparture(cfg, session)
		case now := <-ticker.C:
			changed, err := h.room.Tick(now)
			if err != nil {
				cfg.logger.Error().Err(err).Str("room", h.code).Msg("GAMES: Tick aborted")

				continue
			}
			if changed {
				h.broadcast()
			}
		}
	}
}

func (h *Hub) handleCommand(cfg *Config, req commandRequest) {
	c := req.client
	cmd := req.cmd
	cmd.Session = c.session

	h.touch()

	if req.limited {
		h.sendTo(c, ResultMessage{
			Type:    "result",
			Command: cmd.Type,
			Reply:   engine.Reply{Error: errRateLimited.Error()},
		})

		return
	}

	reply := h.room.Apply(cmd, time.Now())

	switch {
	case engine.Fatal(reply.Err):
		cfg.logger.Error().Err(reply.Err).Str("room", h.code).Str("cmd", string(cmd.Type)).Msg("GAMES: Command aborted")
	case reply.Err != nil:
		logf(cfg, "GAMES: %s rejected %s in %s: %v", c.session, cmd.Type, h.code, reply.Err)
	default:
		logf(cfg, "GAMES: %s applied %s in %s", c.session, cmd.Type, h.code)
	}

	h.sendTo(c, ResultMessage{
		Type:    "result",
		Command: cmd.Type,
		Reply:   reply,
	})

	if reply.Changed {
		h.broadcast()
	}
}

// handleDeparture frees the seat of a participant who did not come back
// while the room was still in the lobby.
func (h *Hub) handleDeparture(cfg *Config, session string) {
	if h.connected(session) || h.room.Phase() != engine.PhaseLobby {
		return
	}

	snap := h.room.Snapshot()
	if snap.BySession(session) == nil {
		return
	}

	reply := h.room.Apply(engine.Command{Type: engine.CmdLeave, Session: session}, time.Now())
	if reply.Err != nil {
		logf(cfg, "GAMES: Unable to remove %s from %s: %v", session, h.code, reply.Err)

		return
	}

	logf(cfg, "GAMES: Removed disconnected player %s from %s", session, h.code)

	h.broadcast()
}

// scheduleRemoval waits for d and then asks the run loop to drop the
// session's seat if it has not reconnected.
func (h *Hub) scheduleRemoval(session string, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-h.done:
		return
	}

	select {
	case h.departures <- session:
	case <-h.done:
	}
}

func (h *Hub) connected(session string) bool {
	for client := range h.clients {
		if client.session == session {
			return true
		}
	}

	return false
}

func (h *Hub) broadcast() {
	snap := h.room.Snapshot()
	h.publish(snap)

	for client := range h.clients {
		h.sendTo(client, h.viewFor(snap, client))
	}
}

// publish stores the spectator view of snap for the HTTP handlers.
func (h *Hub) publish(snap *engine.Snapshot) {
	public := playerView(snap, 0)
	seated := len(snap.Bound())

	h.mu.Lock()
	h.public = public
	h.seated = seated
	h.mu.Unlock()
}

func (h *Hub) viewFor(snap *engine.Snapshot, c *Client) SnapshotMessage {
	seat := 0
	if p := snap.BySession(c.session); p != nil {
		seat = p.Seat
	}

	return SnapshotMessage{
		Type:     "snapshot",
		Seat:     seat,
		Host:     snap.Host(),
		Snapshot: playerView(snap, seat),
	}
}

// sendTo queues msg for c, dropping the client if it cannot keep up.
func (h *Hub) sendTo(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// snapshot returns the most recent public view of the room and the number
// of occupied seats.
func (h *Hub) snapshot() (*engine.Snapshot, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.public, h.seated
}

func (h *Hub) closeAll() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// publicLog lists the log kinds everyone may read while a game is running.
var publicLog = map[string]bool{
	"join":                     true,
	"leave":                    true,
	"phase":                    true,
	"rotate":                   true,
	"report":                   true,
	"false_report":             true,
	"vote":                     true,
	"pause":                    true,
	"resume":                   true,
	"reset":                    true,
	"game_over":                true,
	"shared_task":              true,
	"shared_task_failed":       true,
	"shared_task_succeeded":    true,
	"emergency_task":           true,
	"emergency_task_failed":    true,
	"emergency_task_succeeded": true,
	"emergency_task_cancelled": true,
}

// playerView copies snap with sessions removed and, until the game is over,
// everything private to seats other than seat hidden: roles, codes, killers,
// ability use, puzzle views, task answers and private log lines.
func playerView(snap *engine.Snapshot, seat int) *engine.Snapshot {
	v := snap.Clone()
	open := v.Phase == engine.PhaseGameOver

	for i := range v.Players {
		p := &v.Players[i]
		p.Session = ""

		if open || p.Seat == seat {
			continue
		}

		p.Role = ""
		p.LifeCode = ""
		p.PrevLifeCode = ""
		p.TargetLocation = ""
		p.PoisonAt = time.Time{}
		p.PoisonedBy = 0
		p.EmergencyUsed = false
	}

	if open {
		return v
	}

	used := make(map[int]map[engine.Ability]bool, 1)
	if own, ok := v.Round.Used[seat]; ok {
		used[seat] = own
	}
	v.Round.Used = used

	for _, st := range v.Tasks.Shared {
		hidePuzzle(st.Puzzle, seat)
		hideAnswers(st.Submissions)
		for n := range st.Correct {
			if n != seat {
				delete(st.Correct, n)
			}
		}
	}
	if e := v.Tasks.Emergency; e != nil {
		hidePuzzle(e.Puzzle, seat)
		hideAnswers(e.Attempts)
	}

	for i := range v.Deaths {
		if v.Deaths[i].Killer != seat {
			v.Deaths[i].Killer = 0
		}
	}

	log := make([]engine.LogEntry, 0, len(v.Log))
	for _, e := range v.Log {
		if publicLog[e.Kind] || (seat != 0 && (e.Actor == seat || e.Target == seat)) {
			log = append(log, e)
		}
	}
	v.Log = log

	return v
}

// hidePuzzle drops every view but seat's own.
func hidePuzzle(pz *engine.Puzzle, seat int) {
	if pz == nil {
		return
	}
	for n := range pz.Views {
		if n != seat {
			delete(pz.Views, n)
		}
	}
}

// hideAnswers keeps who has answered but not what they answered.
func hideAnswers(answers map[int]string) {
	for n := range answers {
		answers[n] = ""
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "joker_session"

// playerSession returns the caller's session id, and a cookie to set when a
// new one had to be issued.
func playerSession(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), nil
		}
	}

	id := uuid.NewString()

	return id, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	id, cookie := playerSession(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	return id
}

// GameManager holds a set of hubs keyed by room code, so each $path/$room
// is its own isolated game.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	created     uint64
}

func newGameManager(idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// getHub returns the hub for code, opening a new room if needed.
func (gm *GameManager) getHub(cfg *Config, code string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[code]; ok {
		return hub, nil
	}

	seed := cfg.seed
	if seed != 0 {
		seed += gm.created
	}

	room, err := engine.NewRoom(code, cfg.rules, engine.NewRand(seed), time.Now())
	if err != nil {
		return nil, err
	}
	gm.created++

	hub := newHub(cfg, code, room)
	gm.hubs[code] = hub
	go hub.run(cfg)

	logf(cfg, "GAMES: Opened room %s", code)

	return hub, nil
}

func (gm *GameManager) lookup(code string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return gm.hubs[code]
}

// newRoomCode generates a crypto-random room code that doesn't collide
// with an open room.
func (gm *GameManager) newRoomCode() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		code := string(out)

		if gm.lookup(code) == nil {
			return code
		}
	}
}

// reaperLoop periodically closes rooms that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for code, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, code)
			hub.closeAll()
			reaped++
		}
	}

	return reaped
}

func roomCode(ps httprouter.Params) string {
	code := strings.ToUpper(strings.TrimSpace(ps.ByName("room")))
	if code == "" || len(code) > maxRoomCode {
		return ""
	}

	return code
}

// WebSocket handler that picks the hub based on :room
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := roomCode(ps)
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		session, cookie := playerSession(r)

		hub, err := gm.getHub(cfg, code)
		if err != nil {
			cfg.logger.Error().Err(err).Str("room", code).Msg("GAMES: Unable to open room")
			http.Error(w, "unable to open room", http.StatusInternalServerError)
			return
		}

		header := http.Header{}
		if cookie != nil {
			header.Add("Set-Cookie", cookie.String())
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "GAMES: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:    conn,
			send:    make(chan any, sendBuffer),
			session: session,
			limiter: rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.WriteJSON(SimpleMessage{Type: "closed", Message: "This room has been closed."})
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var cmd engine.Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				cmd = engine.Command{Type: "malformed"}
			} else {
				return
			}
		}

		req := commandRequest{
			client:  c,
			cmd:     cmd,
			limited: !c.limiter.Allow(),
		}

		select {
		case h.commands <- req:
		case <-h.done:
			return
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

// QR handler: generates a PNG QR code for the room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if roomCode(ps) == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// roomInfo describes a room and where to reach it.
type roomInfo struct {
	Code     string       `json:"code"`
	Phase    engine.Phase `json:"phase"`
	Players  int          `json:"players"`
	Seats    int          `json:"seats"`
	Version  uint64       `json:"version"`
	Created  time.Time    `json:"created"`
	Socket   string       `json:"socket"`
	Snapshot string       `json:"snapshot"`
	QR       string       `json:"qr"`
}

func serveJSON(cfg *Config, w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	return json.NewEncoder(w).Encode(v)
}

func getRoomHandler(cfg *Config, path string, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := roomCode(ps)
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		hub, err := gm.getHub(cfg, code)
		if err != nil {
			errs <- err
			http.Error(w, "unable to open room", http.StatusInternalServerError)
			return
		}

		_ = getOrSetPlayerID(w, r)

		snap, seated := hub.snapshot()
		base := cfg.prefix + path + "/" + code

		err = serveJSON(cfg, w, roomInfo{
			Code:     code,
			Phase:    snap.Phase,
			Players:  seated,
			Seats:    len(snap.Players),
			Version:  snap.Version,
			Created:  hub.createdAt,
			Socket:   base + "/ws",
			Snapshot: base + "/snapshot",
			QR:       base + "/qr",
		})
		if err != nil {
			errs <- err
		}
	}
}

func getSnapshotHandler(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub := gm.lookup(roomCode(ps))
		if hub == nil {
			http.Error(w, "no such room", http.StatusNotFound)
			return
		}

		snap, _ := hub.snapshot()
		if err := serveJSON(cfg, w, snap); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by generating a new random room code
// (with server-side collision detection) and redirecting to /path/:room.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := gm.newRoomCode()
		logf(cfg, "GAMES: Created room %s%s/%s", cfg.prefix, path, code)
		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerJokerGame sets up routes so that:
//   - $path                  → redirects to a new random room
//   - $path/:room            → room info
//   - $path/:room/ws         → WebSocket for that room
//   - $path/:room/snapshot   → public snapshot of that room
//   - $path/:room/qr         → PNG QR code for that room URL
func registerJokerGame(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *GameManager {
	gm := newGameManager(cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:room", getRoomHandler(cfg, path, gm, errs))

	mux.GET(cfg.prefix+path+"/:room/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:room/snapshot", getSnapshotHandler(cfg, gm, errs))

	mux.GET(cfg.prefix+path+"/:room/qr", qrHandler)

	return gm
}
