package nav

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// useConfig installs cfg for the duration of the test
func useConfig(t *testing.T, cfg NavConfig) {
	t.Helper()
	prev := navConfig
	SetConfig(cfg)
	t.Cleanup(func() { SetConfig(prev) })
}

// fakeProvider serves handler and counts the requests it receives
func fakeProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

const mapboxDirectionsOK = `{
  "code": "Ok",
  "routes": [{
    "distance": 1500,
    "duration": 125,
    "geometry": {"type": "LineString", "coordinates": [[-122.4194, 37.7749], [-122.4144, 37.7799], [-122.4094, 37.7849]]},
    "legs": [{
      "steps": [
        {"distance": 1000, "duration": 80, "name": "Market Street",
         "maneuver": {"type": "depart", "instruction": "Head north on Market Street.", "location": [-122.4194, 37.7749]}},
        {"distance": 500, "duration": 45, "name": "Main Street",
         "maneuver": {"type": "turn", "modifier": "left", "instruction": "Turn left onto Main Street.", "location": [-122.4144, 37.7799]}},
        {"distance": 0, "duration": 0, "name": "",
         "maneuver": {"type": "arrive", "instruction": "You have arrived at your destination.", "location": [-122.4094, 37.7849]}}
      ]
    }]
  }]
}`

// mapboxDirections serves mapboxDirectionsOK on the directions path
func mapboxDirections(t *testing.T) (*httptest.Server, *int) {
	return fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mapboxDirectionsOK))
	})
}
