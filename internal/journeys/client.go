// Package journeys queries a Transitous (MOTIS v5) instance for door-to-door
// rail connections between two stations.
package journeys

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/transfr/transfr/internal/domain"
)

const (
	planPath       = "/api/v5/plan"
	defaultTimeout = 15 * time.Second
	userAgent      = "transfr/1.0 (+https://github.com/transfr/transfr)"
)

// walkModes are the MOTIS modes presented to clients as plain walking.
var walkModes = map[string]bool{
	"WALK":            true,
	"BIKE":            true,
	"CAR":             true,
	"BIKE_SHARING":    true,
	"CAR_SHARING":     true,
	"SCOOTER_SHARING": true,
}

// Client is an HTTP client for the MOTIS plan endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a plan client against the given base URL. A zero timeout
// falls back to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search plans journeys from origin to destination departing at the given
// time. Station coordinates, not names, are sent upstream; the caller is
// expected to have resolved both stations already.
func (c *Client) Search(ctx context.Context, origin, destination domain.Station, departure time.Time, maxJourneys int) (*domain.JourneyResult, error) {
	if maxJourneys <= 0 {
		maxJourneys = 5
	}

	params := url.Values{}
	params.Set("fromPlace", fmt.Sprintf("%g,%g", origin.Latitude, origin.Longitude))
	params.Set("toPlace", fmt.Sprintf("%g,%g", destination.Latitude, destination.Longitude))
	params.Set("time", departure.Format(time.RFC3339))
	params.Set("numItineraries", strconv.Itoa(maxJourneys))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+planPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plan request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plan request: HTTP %d from %s", resp.StatusCode, c.baseURL)
	}

	var plan planResponse
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode plan response: %w", err)
	}

	result := &domain.JourneyResult{
		Origin:        stationPlace(origin),
		Destination:   stationPlace(destination),
		DepartureTime: departure.Format(time.RFC3339),
		Journeys:      make([]domain.Journey, 0, len(plan.Itineraries)),
	}
	for _, itin := range plan.Itineraries {
		result.Journeys = append(result.Journeys, mapItinerary(itin))
	}
	return result, nil
}

func stationPlace(s domain.Station) domain.Place {
	lat, lon := s.Latitude, s.Longitude
	return domain.Place{ID: s.ID, Name: s.Name, Latitude: &lat, Longitude: &lon}
}

func mapItinerary(itin wireItinerary) domain.Journey {
	legs := make([]domain.Leg, 0, len(itin.Legs))
	for _, l := range itin.Legs {
		legs = append(legs, mapLeg(l))
	}

	var firstDep, lastArr string
	if len(legs) > 0 {
		firstDep = legs[0].Departure
		lastArr = legs[len(legs)-1].Arrival
	}

	duration := itin.Duration
	if duration == nil {
		if d, ok := spanSeconds(firstDep, lastArr); ok {
			duration = &d
		}
	}

	transfers := 0
	if itin.Transfers != nil {
		transfers = *itin.Transfers
	}
	return domain.Journey{
		ID:              fmt.Sprintf("%s_%d", firstDep, transfers),
		Date:            firstDep,
		DurationSeconds: duration,
		Legs:            legs,
		NumChanges:      transfers,
	}
}

func mapLeg(l wireLeg) domain.Leg {
	walking := walkModes[l.Mode]

	leg := domain.Leg{
		Origin:                mapPlace(l.From),
		Destination:           mapPlace(l.To),
		Departure:             l.StartTime,
		PlannedDeparture:      l.ScheduledStartTime,
		Arrival:               l.EndTime,
		PlannedArrival:        l.ScheduledEndTime,
		DepartureDelaySeconds: delaySeconds(l.StartTime, l.ScheduledStartTime),
		ArrivalDelaySeconds:   delaySeconds(l.EndTime, l.ScheduledEndTime),
		Cancelled:             l.Cancelled,
	}
	if l.From != nil {
		leg.DeparturePlatform = l.From.Track
		leg.PlannedDeparturePlatform = l.From.ScheduledTrack
	}
	if l.To != nil {
		leg.ArrivalPlatform = l.To.Track
		leg.PlannedArrivalPlatform = l.To.ScheduledTrack
	}

	if walking {
		leg.Mode = "walking"
		if l.Distance != nil {
			m := int(*l.Distance)
			leg.DistanceMeters = &m
		}
	} else {
		leg.Mode = strings.ToLower(l.Mode)
		if l.DisplayName != "" {
			leg.TrainName = l.DisplayName
		} else {
			leg.TrainName = l.RouteShortName
		}
	}

	for _, stop := range l.IntermediateStops {
		leg.Stopovers = append(leg.Stopovers, mapStopover(stop))
	}
	return leg
}

func mapStopover(p *wirePlace) domain.Stopover {
	s := domain.Stopover{Station: mapPlace(p)}
	if p == nil {
		return s
	}
	s.Arrival = p.Arrival
	s.PlannedArrival = p.ScheduledArrival
	s.Departure = p.Departure
	s.PlannedDeparture = p.ScheduledDeparture
	s.ArrivalPlatform = p.Track
	s.PlannedArrivalPlatform = p.ScheduledTrack
	s.DeparturePlatform = p.Track
	s.PlannedDeparturePlatform = p.ScheduledTrack
	s.ArrivalDelaySeconds = delaySeconds(p.Arrival, p.ScheduledArrival)
	s.DepartureDelaySeconds = delaySeconds(p.Departure, p.ScheduledDeparture)
	s.Cancelled = p.Cancelled
	return s
}

func mapPlace(p *wirePlace) domain.Place {
	if p == nil {
		return domain.Place{}
	}
	return domain.Place{
		ID:        p.StopID,
		Name:      p.Name,
		Latitude:  p.Lat,
		Longitude: p.Lon,
	}
}

// delaySeconds is the signed difference between an actual and a scheduled
// timestamp. Zero delay, missing values, and unparseable timestamps all map
// to nil so that on-time legs carry no delay field.
func delaySeconds(actual, scheduled string) *int {
	d, ok := spanSeconds(scheduled, actual)
	if !ok || d == 0 {
		return nil
	}
	return &d
}

func spanSeconds(from, to string) (int, bool) {
	if from == "" || to == "" {
		return 0, false
	}
	a, errA := time.Parse(time.RFC3339, from)
	b, errB := time.Parse(time.RFC3339, to)
	if errA != nil || errB != nil {
		return 0, false
	}
	return int(b.Sub(a).Seconds()), true
}
