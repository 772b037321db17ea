// Package api provides the HTTP API for observing and playing a game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token and drive the human faction.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/empires4x/internal/engine"
	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/persistence"
	"github.com/talgya/empires4x/internal/world"
)

const maxSSEConns = 2

// Server serves the game over HTTP. Every handler reaches the game through
// Eng.Do, so requests never race the engine loop.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for the event stream. Empty = streaming disabled.

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	// Player input is cheap but easy to flood.
	inputLimiter := NewRateLimiter(600, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/cities", s.handleCities)
	mux.HandleFunc("/api/v1/units", s.handleUnits)
	mux.HandleFunc("/api/v1/goods", s.handleGoods)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/map", s.handleMapRoutes)
	mux.HandleFunc("/api/v1/map/", s.handleMapRoutes)

	// SSE streaming endpoint (GET, requires the relay token).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Player input and admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/key", RateLimitMiddleware(inputLimiter, s.adminOnly(s.handleKey)))
	mux.HandleFunc("/api/v1/click", RateLimitMiddleware(inputLimiter, s.adminOnly(s.handleClick)))
	mux.HandleFunc("/api/v1/end-turn", RateLimitMiddleware(inputLimiter, s.adminOnly(s.handleEndTurn)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/settings", s.adminOnly(s.handleSettings))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no EMPIRES_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":      "empires4x",
		"speed":     s.Eng.Speed(),
		"autopilot": s.Eng.Autopilot,
	}
	s.Eng.Do(func(g *game.Game) {
		status["round"] = g.Round()
		status["round_over"] = g.RoundOver()
		status["factions"] = len(g.Factions())
		status["cities"] = len(g.Cities())
		status["in_transit"] = len(g.Goods())
		if f := g.CurrentFaction(); f != nil {
			status["current_faction"] = f.Name()
			status["awaiting_player"] = f.IsHuman() && !g.RoundOver()
		}
		if u := g.ActiveUnit(); u != nil {
			status["active_unit"] = unitInfoOf(u)
		}
		if h := g.ActiveTile(); h != nil {
			status["active_tile"] = h.Offset()
		}
	})
	writeJSON(w, status)
}

type factionInfo struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Nation string  `json:"nation"`
	Human  bool    `json:"human"`
	Money  float64 `json:"money"`
	State  string  `json:"state"`
	Units  int     `json:"units"`
	Cities int     `json:"cities"`
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	var out []factionInfo
	s.Eng.Do(func(g *game.Game) {
		cities := make(map[*game.Nation]int)
		for _, c := range g.Cities() {
			cities[c.Nation()]++
		}
		for _, f := range g.Factions() {
			out = append(out, factionInfo{
				Index:  f.Index(),
				Name:   f.Name(),
				Color:  f.Color(),
				Nation: f.Nation().Name(),
				Human:  f.IsHuman(),
				Money:  f.Money(),
				State:  f.State().String(),
				Units:  len(f.Units()),
				Cities: cities[f.Nation()],
			})
		}
	})
	writeJSON(w, out)
}

type cityInfo struct {
	Name       string   `json:"name"`
	Nation     string   `json:"nation"`
	Row        int      `json:"row"`
	Col        int      `json:"col"`
	StoredFood int      `json:"stored_food"`
	Queue      []string `json:"queue"`
	Housed     int      `json:"housed"`
	Capacity   int      `json:"capacity"`
}

func cityInfoOf(c *game.City) cityInfo {
	info := cityInfo{
		Name:       c.Name(),
		Nation:     c.Nation().Name(),
		Row:        c.Hex().Row,
		Col:        c.Hex().Col,
		StoredFood: c.StoredFood(),
		Queue:      []string{},
		Housed:     len(c.Housing().Laborers()),
		Capacity:   c.Housing().Capacity(),
	}
	for _, q := range c.Queue() {
		info.Queue = append(info.Queue, q.UnitType)
	}
	return info
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	nation := r.URL.Query().Get("nation")
	out := []cityInfo{}
	s.Eng.Do(func(g *game.Game) {
		for _, c := range g.Cities() {
			if nation != "" && c.Nation().Name() != nation {
				continue
			}
			out = append(out, cityInfoOf(c))
		}
	})
	writeJSON(w, out)
}

type unitInfo struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Faction string        `json:"faction"`
	Row     int           `json:"row"`
	Col     int           `json:"col"`
	Moves   int           `json:"moves"`
	Active  bool          `json:"active"`
	Target  *world.Offset `json:"target,omitempty"`
	Pending string        `json:"pending,omitempty"`
}

func unitInfoOf(u *game.Unit) unitInfo {
	info := unitInfo{
		ID:      u.ID().String(),
		Type:    u.Type(),
		Faction: u.Faction().Name(),
		Row:     u.Hex().Row,
		Col:     u.Hex().Col,
		Moves:   u.Moves(),
		Active:  u.Active(),
	}
	if p := u.Path(); p != nil && p.Target != nil {
		o := p.Target.Offset()
		info.Target = &o
	}
	if p := u.Pending(); p != nil {
		info.Pending = p.Kind.String()
	}
	return info
}

// handleUnits lists living units. ?faction=N narrows to one faction index.
func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	only := -1
	if v := r.URL.Query().Get("faction"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid faction", http.StatusBadRequest)
			return
		}
		only = n
	}
	out := []unitInfo{}
	s.Eng.Do(func(g *game.Game) {
		for _, f := range g.Factions() {
			if only >= 0 && f.Index() != only {
				continue
			}
			for _, u := range f.Units() {
				out = append(out, unitInfoOf(u))
			}
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleGoods(w http.ResponseWriter, r *http.Request) {
	type goodsInfo struct {
		ID       string        `json:"id"`
		Type     string        `json:"type"`
		Quantity int           `json:"quantity"`
		Rounds   int           `json:"rounds"`
		Row      int           `json:"row"`
		Col      int           `json:"col"`
		Target   *world.Offset `json:"target,omitempty"`
	}
	out := []goodsInfo{}
	s.Eng.Do(func(g *game.Game) {
		for _, gd := range g.Goods() {
			info := goodsInfo{
				ID:       gd.ID().String(),
				Type:     gd.Type(),
				Quantity: gd.Quantity(),
				Rounds:   gd.Rounds(),
				Row:      gd.Hex().Row,
				Col:      gd.Hex().Col,
			}
			if t := gd.Target(); t != nil {
				o := t.Offset()
				info.Target = &o
			}
			out = append(out, info)
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Eng.Events(0)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}

	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Eng.Stats())
}

// handleMapRoutes dispatches between bulk map (GET /api/v1/map) and hex detail (GET /api/v1/map/:row/:col).
func (s *Server) handleMapRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/map")
	if path == "" || path == "/" {
		s.handleBulkMap(w, r)
		return
	}
	s.handleHexDetail(w, r)
}

// handleBulkMap returns all hexes with their owner for the map renderer.
func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	type hexEntry struct {
		Row         int     `json:"row"`
		Col         int     `json:"col"`
		Terrain     string  `json:"terrain"`
		Elevation   float64 `json:"elevation"`
		Nation      *int    `json:"nation,omitempty"`
		Improvement string  `json:"improvement,omitempty"`
	}

	var (
		hexes  []hexEntry
		cities []cityInfo
		rows   int
		cols   int
	)
	s.Eng.Do(func(g *game.Game) {
		hexes = make([]hexEntry, 0, g.Grid().Len())
		for _, h := range g.Grid().Hexes() {
			entry := hexEntry{
				Row:       h.Row,
				Col:       h.Col,
				Terrain:   string(h.Terrain),
				Elevation: h.Elevation,
			}
			t := g.TileAt(h)
			if n := t.Nation(); n != nil {
				idx := n.Index()
				entry.Nation = &idx
			}
			if imp := t.Improvement(); imp != nil {
				entry.Improvement = imp.Key
			}
			rows = max(rows, h.Row+1)
			cols = max(cols, h.Col+1)
			hexes = append(hexes, entry)
		}
		for _, c := range g.Cities() {
			cities = append(cities, cityInfoOf(c))
		}
	})

	writeJSON(w, map[string]any{
		"rows":   rows,
		"cols":   cols,
		"hexes":  hexes,
		"cities": cities,
	})
}

// parseHexPath reads :row/:col after the given prefix.
func parseHexPath(path, prefix string) (int, int, bool) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	row, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	return row, col, err1 == nil && err2 == nil
}

// handleHexDetail describes one hex as the human faction knows it.
func (s *Server) handleHexDetail(w http.ResponseWriter, r *http.Request) {
	row, col, ok := parseHexPath(r.URL.Path, "/api/v1/map")
	if !ok {
		http.Error(w, "usage: /api/v1/map/:row/:col", http.StatusBadRequest)
		return
	}

	var result map[string]any
	s.Eng.Do(func(g *game.Game) {
		hex := g.Grid().HexAt(row, col)
		if hex == nil {
			return
		}
		t := g.TileAt(hex)
		result = map[string]any{
			"row":       row,
			"col":       col,
			"terrain":   string(hex.Terrain),
			"elevation": hex.Elevation,
			"rainfall":  hex.Rainfall,
		}
		if factions := g.Factions(); len(factions) > 0 {
			result["fog"] = g.Fog().State(factions[0], hex).String()
		}
		if f := t.Faction(); f != nil {
			result["faction"] = f.Name()
		}
		if n := t.Nation(); n != nil {
			result["nation"] = n.Name()
		}
		if c := t.City(); c != nil {
			result["city"] = cityInfoOf(c)
		}
		if imp := t.Improvement(); imp != nil {
			result["improvement"] = map[string]any{
				"key":      imp.Key,
				"name":     imp.Name,
				"produces": imp.Produces,
				"quantity": imp.Quantity,
				"laborers": len(t.Laborers()),
			}
		}

		units := []unitInfo{}
		for _, f := range g.Factions() {
			for _, u := range f.Units() {
				if u.Hex() == hex {
					units = append(units, unitInfoOf(u))
				}
			}
		}
		result["units"] = units

		var neighbors []world.Offset
		for _, nh := range g.Grid().Neighbors(hex) {
			neighbors = append(neighbors, nh.Offset())
		}
		result["neighbors"] = neighbors
	})

	if result == nil {
		http.Error(w, "hex not found", http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// handleKey raises a key-pressed signal, as a keyboard would.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		http.Error(w, "invalid json: need {\"key\": ...}", http.StatusBadRequest)
		return
	}

	var resp map[string]any
	s.Eng.Do(func(g *game.Game) {
		g.Publish(game.KeyPressed{Key: req.Key})
		g.RunQueue()
		resp = map[string]any{"round": g.Round(), "key": req.Key}
		if u := g.ActiveUnit(); u != nil {
			resp["active_unit"] = unitInfoOf(u)
		}
	})
	slog.Debug("key pressed", "key", req.Key)
	writeJSON(w, resp)
}

// handleClick raises a hex-clicked signal for a board position.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Row int `json:"row"`
		Col int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	found := false
	s.Eng.Do(func(g *game.Game) {
		hex := g.Grid().HexAt(req.Row, req.Col)
		if hex == nil {
			return
		}
		found = true
		g.Publish(game.HexClicked{Hex: hex})
		g.RunQueue()
	})
	if !found {
		http.Error(w, "hex not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"active_tile": world.Offset{Row: req.Row, Col: req.Col}})
}

// handleEndTurn ends the human faction's turn. The computer factions play
// out the rest of the round before the response is written.
func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var (
		ended bool
		resp  map[string]any
	)
	s.Eng.Do(func(g *game.Game) {
		f := g.CurrentFaction()
		if f == nil || !f.IsHuman() || g.RoundOver() {
			return
		}
		f.EndTurn()
		g.RunQueue()
		ended = true
		resp = map[string]any{"round": g.Round(), "round_over": g.RoundOver()}
	})
	if !ended {
		http.Error(w, "not the player's turn", http.StatusConflict)
		return
	}
	slog.Info("player ended turn", "round", resp["round"])
	writeJSON(w, resp)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		if err := s.Eng.SetSpeed(req.Speed); err != nil {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleSettings returns the player settings; POST {"name", "value"}
// changes one of them and stores the result in the savegame.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var err error
		s.Eng.Do(func(g *game.Game) {
			next := *g.Settings()
			if err = next.Set(req.Name, req.Value); err != nil {
				return
			}
			g.SetSettings(&next)
			if s.DB != nil {
				err = s.DB.SaveSettings(&next)
			}
		})
		if err != nil {
			slog.Warn("settings change rejected", "name", req.Name, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	var out any
	s.Eng.Do(func(g *game.Game) { out = *g.Settings() })
	writeJSON(w, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		var snap *game.Snapshot
		s.Eng.Do(func(g *game.Game) { snap = g.Snapshot() })
		writeJSON(w, snap)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var (
		round int
		err   error
	)
	s.Eng.Do(func(g *game.Game) {
		round = g.Round()
		err = s.DB.SaveSnapshot(g.Snapshot())
	})
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"round":   round,
		"message": "snapshot saved",
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Auth check uses the relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch := s.Eng.Subscribe()
	defer s.Eng.Unsubscribe(subID)

	// Send recent events as catch-up.
	for _, e := range s.Eng.Events(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	// Stream loop with heartbeat.
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
