package domain

// Place identifies a stop or station within a journey response.
type Place struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Stopover is an intermediate stop along a transit leg.
type Stopover struct {
	Station                  Place  `json:"station"`
	Arrival                  string `json:"arrival,omitempty"`
	PlannedArrival           string `json:"planned_arrival,omitempty"`
	Departure                string `json:"departure,omitempty"`
	PlannedDeparture         string `json:"planned_departure,omitempty"`
	ArrivalPlatform          string `json:"arrival_platform,omitempty"`
	PlannedArrivalPlatform   string `json:"planned_arrival_platform,omitempty"`
	DeparturePlatform        string `json:"departure_platform,omitempty"`
	PlannedDeparturePlatform string `json:"planned_departure_platform,omitempty"`
	ArrivalDelaySeconds      *int   `json:"arrival_delay_s"`
	DepartureDelaySeconds    *int   `json:"departure_delay_s"`
	Cancelled                bool   `json:"cancelled"`
}

// Leg is one segment of a journey, either a transit ride or a walk.
type Leg struct {
	Origin                   Place      `json:"origin"`
	Destination              Place      `json:"destination"`
	Departure                string     `json:"departure,omitempty"`
	PlannedDeparture         string     `json:"planned_departure,omitempty"`
	Arrival                  string     `json:"arrival,omitempty"`
	PlannedArrival           string     `json:"planned_arrival,omitempty"`
	DeparturePlatform        string     `json:"departure_platform,omitempty"`
	PlannedDeparturePlatform string     `json:"planned_departure_platform,omitempty"`
	ArrivalPlatform          string     `json:"arrival_platform,omitempty"`
	PlannedArrivalPlatform   string     `json:"planned_arrival_platform,omitempty"`
	DepartureDelaySeconds    *int       `json:"departure_delay_s"`
	ArrivalDelaySeconds      *int       `json:"arrival_delay_s"`
	TrainName                string     `json:"train_name,omitempty"`
	Mode                     string     `json:"mode"`
	Cancelled                bool       `json:"cancelled"`
	DistanceMeters           *int       `json:"distance_m,omitempty"`
	Stopovers                []Stopover `json:"stopovers,omitempty"`
}

// Journey is one door-to-door connection option.
type Journey struct {
	ID              string `json:"id"`
	Date            string `json:"date,omitempty"`
	DurationSeconds *int   `json:"duration_s"`
	Legs            []Leg  `json:"legs"`
	NumChanges      int    `json:"num_changes"`
}

// JourneyResult is the full response for a journey search.
type JourneyResult struct {
	Origin        Place     `json:"origin"`
	Destination   Place     `json:"destination"`
	DepartureTime string    `json:"departure_time"`
	Journeys      []Journey `json:"journeys"`
}
