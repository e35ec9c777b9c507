package journeys

// Wire types for the MOTIS v5 plan response. Only the fields this service
// consumes are declared; unknown fields are ignored by the decoder.

type planResponse struct {
	Itineraries []wireItinerary `json:"itineraries"`
}

type wireItinerary struct {
	Duration  *int      `json:"duration"`
	Transfers *int      `json:"transfers"`
	Legs      []wireLeg `json:"legs"`
}

type wireLeg struct {
	Mode               string       `json:"mode"`
	From               *wirePlace   `json:"from"`
	To                 *wirePlace   `json:"to"`
	StartTime          string       `json:"startTime"`
	EndTime            string       `json:"endTime"`
	ScheduledStartTime string       `json:"scheduledStartTime"`
	ScheduledEndTime   string       `json:"scheduledEndTime"`
	Distance           *float64     `json:"distance"`
	DisplayName        string       `json:"displayName"`
	RouteShortName     string       `json:"routeShortName"`
	Cancelled          bool         `json:"cancelled"`
	IntermediateStops  []*wirePlace `json:"intermediateStops"`
}

type wirePlace struct {
	StopID             string   `json:"stopId"`
	Name               string   `json:"name"`
	Lat                *float64 `json:"lat"`
	Lon                *float64 `json:"lon"`
	Track              string   `json:"track"`
	ScheduledTrack     string   `json:"scheduledTrack"`
	Arrival            string   `json:"arrival"`
	ScheduledArrival   string   `json:"scheduledArrival"`
	Departure          string   `json:"departure"`
	ScheduledDeparture string   `json:"scheduledDeparture"`
	Cancelled          bool     `json:"cancelled"`
}
