package openrouteservice

// directionsRequest asks for the summary only: no turn instructions, no
// geometry. Coordinates are [lon, lat].
type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Instructions bool         `json:"instructions"`
	Geometry     bool         `json:"geometry"`
	Units        string       `json:"units"`
	// Radiuses bounds how far each coordinate may snap to the road network,
	// in meters; -1 is unlimited.
	Radiuses []float64 `json:"radiuses,omitempty"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// codeRouteNotFound is the ORS error code for points the network cannot join.
const codeRouteNotFound = 2009
