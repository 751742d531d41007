package nav

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nwah/hudnav-server/geo"
)

var navConfig NavConfig

// SetConfig sets the navigation configuration
func SetConfig(cfg NavConfig) {
	navConfig = cfg
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	httpClient = &http.Client{Timeout: timeout}
}

// Helper functions for formatting
func formatDuration(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dhr %dmin", hours, minutes)
		}
		return fmt.Sprintf("%dhr", hours)
	}
	return fmt.Sprintf("%dmin", minutes)
}

func writePlainTextRoute(w http.ResponseWriter, result *RouteResponse) {
	w.Header().Set("Content-Type", "text/plain")
	imperial := result.Units.Imperial()

	total := 0.0
	for _, step := range result.Steps {
		total += step.Meters
	}

	// Write duration and distance
	fmt.Fprintf(w, "%s\n", formatDuration(result.Duration))
	fmt.Fprintf(w, "%s\n", geo.FormatDistance(total, imperial))
	fmt.Fprintf(w, "%d\n", len(result.Steps))

	// Write steps
	for i, step := range result.Steps {
		// Write icon on its own line
		fmt.Fprintf(w, "%s\n", step.Icon)

		if i < len(result.Steps)-1 {
			fmt.Fprintf(w, "%s (%s)\n", step.Description, geo.FormatDistance(step.Meters, imperial))
		} else {
			fmt.Fprintf(w, "%s\n", step.Description)
		}
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// errorStatus maps provider errors onto HTTP status codes
func errorStatus(err error) int {
	var noResults *ErrNoResults
	switch {
	case errors.As(err, &noResults), errors.Is(err, ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseLatLng(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid lat,lng format")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %v", err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %v", err)
	}

	if !(geo.Point{Lat: lat, Lon: lng}).Valid() {
		return 0, 0, fmt.Errorf("coordinates out of range")
	}

	return lat, lng, nil
}

// HandleGeocode handles the /nav/geocode endpoint
func HandleGeocode(w http.ResponseWriter, r *http.Request) {
	log.Printf("Debug: Geocode %s request to %s", r.Method, r.URL.String())

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
			return
		}

		q := GeocodeQuery{Text: query}
		if near := r.URL.Query().Get("near"); near != "" {
			lat, lng, err := parseLatLng(near)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'near' parameter: %v", err))
				return
			}
			q.Near = &geo.Point{Lat: lat, Lon: lng}
		}
		if country := strings.ToLower(r.URL.Query().Get("country")); country != "" {
			q.Country = CountryCode(country)
			if !q.Country.IsValid() {
				writeError(w, http.StatusBadRequest, "country must be a valid 2-letter ISO code")
				return
			}
		}

		log.Printf("Debug: Geocode query: %q", query)

		results, err := geocode(r.Context(), q)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		log.Printf("Debug: Geocode found %d results", len(results))
		writeJSON(w, results)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		query := strings.TrimSpace(string(body))
		if query == "" {
			writeError(w, http.StatusBadRequest, "request body cannot be empty")
			return
		}

		results, err := geocode(r.Context(), GeocodeQuery{Text: query})
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}

		log.Printf("Debug: Geocode found %d results", len(results))

		// Return plain text format for POST requests
		w.Header().Set("Content-Type", "text/plain")
		// First line is the number of results
		fmt.Fprintf(w, "%d\n", len(results))
		// Output each result as 4 consecutive lines
		for _, result := range results {
			fmt.Fprintf(w, "%.4f,%.4f\n%s\n%s\n%s\n", result.Lat, result.Lng, result.Name, result.Address, result.Country)
		}

	default:
		writeError(w, http.StatusMethodNotAllowed, "only GET and POST methods are allowed")
	}
}

// HandleRoute handles the /nav/route endpoint
func HandleRoute(w http.ResponseWriter, r *http.Request) {
	log.Printf("Debug: Route %s request to %s", r.Method, r.URL.String())

	switch r.Method {
	case http.MethodGet:
		// Parse parameters
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		mode := r.URL.Query().Get("mode")
		units := r.URL.Query().Get("units")
		fromDesc := r.URL.Query().Get("fromDesc")
		toDesc := r.URL.Query().Get("toDesc")

		log.Printf("Debug: Route parameters - from=%q, to=%q, mode=%q, units=%q, fromDesc=%q, toDesc=%q",
			from, to, mode, units, fromDesc, toDesc)

		if from == "" || to == "" {
			writeError(w, http.StatusBadRequest, "both 'from' and 'to' parameters are required")
			return
		}

		// Validate mode
		transportMode := DefaultMode
		if mode != "" {
			transportMode = TransportMode(strings.ToLower(mode))
			if !transportMode.IsValid() {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid mode. Must be one of: %s, %s, %s",
					ModeWalking, ModeBiking, ModeAuto))
				return
			}
		}

		// Validate units
		distanceUnit := DefaultUnit
		if units != "" {
			distanceUnit = DistanceUnit(strings.ToLower(units))
			if !distanceUnit.IsValid() {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid units. Must be one of: %s, %s",
					UnitKilometers, UnitMiles))
				return
			}
		}

		// Parse coordinates
		fromLat, fromLng, err := parseLatLng(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'from' parameter: %v", err))
			return
		}

		toLat, toLng, err := parseLatLng(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'to' parameter: %v", err))
			return
		}

		result, err := route(r.Context(), RouteRequest{
			FromLat:  fromLat,
			FromLng:  fromLng,
			ToLat:    toLat,
			ToLng:    toLng,
			FromDesc: fromDesc,
			ToDesc:   toDesc,
			Mode:     transportMode,
			Units:    distanceUnit,
		})
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, result)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "\n\n0\nfailed to read request body\n")
			return
		}
		defer r.Body.Close()

		log.Printf("Debug: Route POST body: %s", string(body))

		// Split the body into lines: mode, units, from, to, [fromDesc], [toDesc]
		lines := strings.Split(strings.TrimSpace(string(body)), "\n")
		if len(lines) < 4 {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "\n\n0\nrequest must contain at least 4 lines\n")
			return
		}
		for i := range lines {
			lines[i] = strings.TrimSpace(strings.TrimRight(lines[i], "\r"))
		}

		transportMode := TransportMode(strings.ToLower(lines[0]))
		if !transportMode.IsValid() {
			transportMode = DefaultMode
		}
		distanceUnit := DistanceUnit(strings.ToLower(lines[1]))
		if !distanceUnit.IsValid() {
			distanceUnit = DefaultUnit
		}

		var fromDesc, toDesc string
		if len(lines) > 4 {
			fromDesc = lines[4]
		}
		if len(lines) > 5 {
			toDesc = lines[5]
		}

		fromLat, fromLng, err := parseLatLng(lines[2])
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "\n\n0\ninvalid 'from' coordinates\n")
			return
		}

		toLat, toLng, err := parseLatLng(lines[3])
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "\n\n0\ninvalid 'to' coordinates\n")
			return
		}

		result, err := route(r.Context(), RouteRequest{
			FromLat:  fromLat,
			FromLng:  fromLng,
			ToLat:    toLat,
			ToLng:    toLng,
			FromDesc: fromDesc,
			ToDesc:   toDesc,
			Mode:     transportMode,
			Units:    distanceUnit,
		})
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "\n\n0\n%s\n", err.Error())
			return
		}

		writePlainTextRoute(w, result)

	default:
		writeError(w, http.StatusMethodNotAllowed, "only GET and POST methods are allowed")
	}
}
