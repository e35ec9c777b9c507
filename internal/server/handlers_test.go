package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/pathfind"
	"github.com/transfr/transfr/internal/stations"
	"github.com/transfr/transfr/internal/store"
)

const stationsCSV = `id;name;slug;uic;latitude;longitude;country;db_id;is_main_station;is_suggestable
1;Strasbourg;strasbourg;8721202;48.5850;7.7348;FR;8000000;t;t
2;Paris Est;paris-est;8711300;48.8768;2.3592;FR;;t;t
3;Paris Gare de Lyon;paris-gare-de-lyon;8768600;48.8443;2.3744;FR;;f;t
`

type plannerStub struct {
	result         *domain.JourneyResult
	err            error
	gotOrigin      domain.Station
	gotDestination domain.Station
}

func (p *plannerStub) Search(_ context.Context, origin, destination domain.Station, _ time.Time, _ int) (*domain.JourneyResult, error) {
	p.gotOrigin, p.gotDestination = origin, destination
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func platformEdge(relation osm.RelationID, way osm.WayID, ref string, nodes ...osm.NodeID) domain.PlatformEdge {
	return domain.PlatformEdge{RelationID: relation, WayID: way, Nodes: nodes, EdgeRef: ref}
}

func testStack(t *testing.T, planner JourneyPlanner) (*APIHandlers, *store.Memory) {
	t.Helper()

	mem := store.NewMemory().
		AddSegments(5,
			domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
			domain.WaySegment{NodeFrom: 2, NodeTo: 3, WayID: 20},
		).
		AddPlatformEdge("strasbourg", platformEdge(5, 10, "1", 1, 2)).
		AddPlatformEdge("strasbourg", platformEdge(5, 20, "2", 2, 3))

	directory, err := stations.New(strings.NewReader(stationsCSV))
	if err != nil {
		t.Fatalf("stations.New: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	finder := pathfind.NewFinder(mem, logger, pathfind.Options{})
	return NewAPIHandlers(logger, finder, directory, planner, 2), mem
}

func TestHandlePath(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/path?station=strasbourg&from=1&to=2", nil)
	rec := httptest.NewRecorder()
	handlers.handlePath(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload routeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Type != domain.RouteWayPath {
		t.Errorf("type = %q", payload.Type)
	}
	if len(payload.Path) != 3 {
		t.Errorf("path has %d states, want 3", len(payload.Path))
	}
	if len(payload.WayIDs) != 2 || payload.WayIDs[0] != 10 || payload.WayIDs[1] != 20 {
		t.Errorf("wayIds = %v, want [10 20]", payload.WayIDs)
	}
	if payload.Stats.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", payload.Stats.Rounds)
	}
}

func TestHandlePathUnknownEdge(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/path?station=strasbourg&from=1&to=9", nil)
	rec := httptest.NewRecorder()
	handlers.handlePath(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlePathMissingParams(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/path?station=strasbourg", nil)
	rec := httptest.NewRecorder()
	handlers.handlePath(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAutocomplete(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/autocomplete?q=paris", nil)
	rec := httptest.NewRecorder()
	handlers.handleAutocomplete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var hits []domain.Station
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Name != "Paris Est" {
		t.Errorf("first hit = %q, want the main station", hits[0].Name)
	}
}

func TestHandleAutocompleteShortQuery(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/autocomplete?q=p", nil)
	rec := httptest.NewRecorder()
	handlers.handleAutocomplete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want an empty array", body)
	}
}

func TestHandleNearby(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/nearby?lat=48.58&lon=7.73&limit=1", nil)
	rec := httptest.NewRecorder()
	handlers.handleNearby(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var hits []stations.NearbyStation
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "Strasbourg" {
		t.Fatalf("hits = %v, want just Strasbourg", hits)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/nearby?lat=not-a-number", nil)
	rec = httptest.NewRecorder()
	handlers.handleNearby(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleJourneys(t *testing.T) {
	planner := &plannerStub{result: &domain.JourneyResult{Journeys: []domain.Journey{{ID: "j1"}}}}
	handlers, _ := testStack(t, planner)

	req := httptest.NewRequest(http.MethodGet, "/api/journeys?origin=strasbourg&destination=paris+est", nil)
	rec := httptest.NewRecorder()
	handlers.handleJourneys(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if planner.gotOrigin.Name != "Strasbourg" || planner.gotDestination.Name != "Paris Est" {
		t.Errorf("planner received %q -> %q", planner.gotOrigin.Name, planner.gotDestination.Name)
	}
}

func TestHandleJourneysUnknownStation(t *testing.T) {
	handlers, _ := testStack(t, &plannerStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/journeys?origin=atlantis&destination=paris+est", nil)
	rec := httptest.NewRecorder()
	handlers.handleJourneys(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleJourneysUpstreamFailure(t *testing.T) {
	planner := &plannerStub{err: errors.New("gateway timeout")}
	handlers, _ := testStack(t, planner)

	req := httptest.NewRequest(http.MethodGet, "/api/journeys?origin=strasbourg&destination=paris+est", nil)
	rec := httptest.NewRecorder()
	handlers.handleJourneys(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHandleStationEdges(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stations/strasbourg/edges", nil)
	rec := httptest.NewRecorder()
	handlers.handleStation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload stationEdgesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(payload.Edges))
	}
	if payload.Edges[0].Ref != "1" || payload.Edges[0].WayID != 10 {
		t.Errorf("first edge = %+v", payload.Edges[0])
	}
}

func TestHandleStationEdgesUnknownStation(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stations/nowhere/edges", nil)
	rec := httptest.NewRecorder()
	handlers.handleStation(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleStationMatrix(t *testing.T) {
	handlers, _ := testStack(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stations/strasbourg/matrix", nil)
	rec := httptest.NewRecorder()
	handlers.handleStation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload matrixResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(payload.Entries))
	}
	if payload.Entries[0].Route == nil {
		t.Error("connected pair must carry a route")
	}
}

func TestHealthz(t *testing.T) {
	handlers, mem := testStack(t, nil)
	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), RouterDependencies{
		Health: StoreHealthService{Store: mem},
		API:    handlers,
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// A closed store degrades the probe.
	_ = mem.Close()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
