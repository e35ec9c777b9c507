package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/pathfind"
	"github.com/transfr/transfr/internal/stations"
	"github.com/transfr/transfr/internal/store"
)

const autocompleteMaxResults = 8

// JourneyPlanner plans door-to-door connections between two resolved stations.
type JourneyPlanner interface {
	Search(ctx context.Context, origin, destination domain.Station, departure time.Time, maxJourneys int) (*domain.JourneyResult, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger        *slog.Logger
	finder        *pathfind.Finder
	directory     *stations.Directory
	planner       JourneyPlanner
	matrixWorkers int
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, finder *pathfind.Finder, directory *stations.Directory, planner JourneyPlanner, matrixWorkers int) *APIHandlers {
	return &APIHandlers{
		logger:        logger,
		finder:        finder,
		directory:     directory,
		planner:       planner,
		matrixWorkers: matrixWorkers,
	}
}

func (h *APIHandlers) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 2 {
		respondJSON(w, http.StatusOK, []domain.Station{})
		return
	}

	hits := h.directory.Autocomplete(q, autocompleteMaxResults)
	if hits == nil {
		hits = []domain.Station{}
	}
	respondJSON(w, http.StatusOK, hits)
}

func (h *APIHandlers) handleNearby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(query.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	limit := parseInt(query.Get("limit"), 5)

	nearby := h.directory.Nearby(lat, lon, limit)
	if nearby == nil {
		nearby = []stations.NearbyStation{}
	}
	respondJSON(w, http.StatusOK, nearby)
}

func (h *APIHandlers) handleJourneys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	originName := strings.TrimSpace(query.Get("origin"))
	destinationName := strings.TrimSpace(query.Get("destination"))
	if originName == "" || destinationName == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}

	departure := time.Now()
	if v := strings.TrimSpace(query.Get("time")); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid time format")
			return
		}
		departure = ts
	}

	origin, err := h.directory.Resolve(originName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	destination, err := h.directory.Resolve(destinationName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	result, err := h.planner.Search(r.Context(), origin, destination, departure, 5)
	if err != nil {
		h.logger.Error("journey search failed", "error", err, "origin", origin.Name, "destination", destination.Name)
		writeError(w, http.StatusBadGateway, "journey planning unavailable")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handlePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	station := strings.TrimSpace(query.Get("station"))
	fromRef := strings.TrimSpace(query.Get("from"))
	toRef := strings.TrimSpace(query.Get("to"))
	if station == "" || fromRef == "" || toRef == "" {
		writeError(w, http.StatusBadRequest, "station, from and to are required")
		return
	}

	edge1, err := h.finder.ResolveEdge(r.Context(), station, fromRef)
	if err != nil {
		h.storeError(w, err, "resolve edge", "station", station, "ref", fromRef)
		return
	}
	edge2, err := h.finder.ResolveEdge(r.Context(), station, toRef)
	if err != nil {
		h.storeError(w, err, "resolve edge", "station", station, "ref", toRef)
		return
	}

	route, err := h.finder.FindPath(r.Context(), edge1, edge2)
	if err != nil {
		h.storeError(w, err, "find path", "station", station, "from", fromRef, "to", toRef)
		return
	}
	respondJSON(w, http.StatusOK, buildRouteResponse(station, route))
}

// handleStation routes /api/stations/{name}/{edges|matrix}.
func (h *APIHandlers) handleStation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stations/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	station := parts[0]

	switch parts[1] {
	case "edges":
		h.stationEdges(w, r, station)
	case "matrix":
		h.stationMatrix(w, r, station)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) stationEdges(w http.ResponseWriter, r *http.Request, station string) {
	edges, err := h.finder.PlatformEdges(r.Context(), station)
	if err != nil {
		h.storeError(w, err, "list edges", "station", station)
		return
	}
	if len(edges) == 0 {
		writeError(w, http.StatusNotFound, "no indexed platform edges")
		return
	}

	resp := stationEdgesResponse{Station: station, Edges: make([]edgeResponse, 0, len(edges))}
	for _, e := range edges {
		resp.Edges = append(resp.Edges, buildEdgeResponse(e))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) stationMatrix(w http.ResponseWriter, r *http.Request, station string) {
	entries, err := h.finder.PathMatrix(r.Context(), station, h.matrixWorkers)
	if err != nil {
		h.storeError(w, err, "path matrix", "station", station)
		return
	}

	resp := matrixResponse{Station: station, Entries: make([]matrixEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		me := matrixEntryResponse{FromRef: entry.FromRef, ToRef: entry.ToRef}
		if entry.Route != nil {
			route := buildRouteResponse(station, entry.Route)
			me.Route = &route
		}
		resp.Entries = append(resp.Entries, me)
	}
	respondJSON(w, http.StatusOK, resp)
}

// storeError maps store sentinel errors onto HTTP statuses and logs the rest.
func (h *APIHandlers) storeError(w http.ResponseWriter, err error, op string, args ...any) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		h.logger.Error(op+" failed", append([]any{"error", err}, args...)...)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		h.logger.Error(op+" failed", append([]any{"error", err}, args...)...)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// --- Response DTOs ---

type routeResponse struct {
	Type                 string              `json:"type"`
	Station              string              `json:"station"`
	RelationID           int64               `json:"relationId"`
	FromRef              string              `json:"fromRef"`
	ToRef                string              `json:"toRef"`
	Path                 []pathStateResponse `json:"path"`
	WayIDs               []int64             `json:"wayIds"`
	PathNodes            []int64             `json:"pathNodes"`
	ConnectingWayID      int64               `json:"connectingWayId,omitempty"`
	CrossingLengthMeters *float64            `json:"crossingLengthMeters,omitempty"`
	PlatformWidthMeters  *float64            `json:"platformWidthMeters,omitempty"`
	Stats                domain.SearchStats  `json:"stats"`
}

type pathStateResponse struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

type stationEdgesResponse struct {
	Station string         `json:"station"`
	Edges   []edgeResponse `json:"edges"`
}

type edgeResponse struct {
	Ref        string  `json:"ref"`
	RelationID int64   `json:"relationId"`
	WayID      int64   `json:"wayId"`
	Nodes      []int64 `json:"nodes"`
}

type matrixResponse struct {
	Station string                `json:"station"`
	Entries []matrixEntryResponse `json:"entries"`
}

type matrixEntryResponse struct {
	FromRef string         `json:"fromRef"`
	ToRef   string         `json:"toRef"`
	Route   *routeResponse `json:"route,omitempty"`
}

func buildRouteResponse(station string, route *domain.Route) routeResponse {
	resp := routeResponse{
		Type:                 route.Type,
		Station:              station,
		RelationID:           int64(route.RelationID),
		FromRef:              route.Edge1.EdgeRef,
		ToRef:                route.Edge2.EdgeRef,
		Path:                 make([]pathStateResponse, 0, len(route.Path)),
		WayIDs:               make([]int64, 0, len(route.WayIDs)),
		PathNodes:            make([]int64, 0, len(route.PathNodes)),
		ConnectingWayID:      int64(route.ConnectingWayID),
		CrossingLengthMeters: route.CrossingLengthMeters,
		PlatformWidthMeters:  route.PlatformWidthMeters,
		Stats:                route.Stats,
	}
	for _, s := range route.Path {
		resp.Path = append(resp.Path, pathStateResponse{Kind: s.Kind.String(), ID: s.ID})
	}
	for _, w := range route.WayIDs {
		resp.WayIDs = append(resp.WayIDs, int64(w))
	}
	for _, n := range route.PathNodes {
		resp.PathNodes = append(resp.PathNodes, int64(n))
	}
	return resp
}

func buildEdgeResponse(e domain.PlatformEdge) edgeResponse {
	resp := edgeResponse{
		Ref:        e.EdgeRef,
		RelationID: int64(e.RelationID),
		WayID:      int64(e.WayID),
		Nodes:      make([]int64, 0, len(e.Nodes)),
	}
	for _, n := range e.Nodes {
		resp.Nodes = append(resp.Nodes, int64(n))
	}
	return resp
}

// --- Helpers ---

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
