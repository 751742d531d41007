package nav

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrNoResults is returned when no geocoding results are found
type ErrNoResults struct {
	Query string
}

func (e *ErrNoResults) Error() string {
	return fmt.Sprintf("no results found for query: %s", e.Query)
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	State       string `json:"state"`
	PostCode    string `json:"postcode"`
	Name        string `json:"name"`
	Country     string `json:"country_code"` // Two-letter ISO country code
}

type nominatimNames struct {
	Name     string `json:"name"`
	Official string `json:"official_name"`
	Alt      string `json:"alt_name"`
}

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	NameDetails nominatimNames   `json:"namedetails"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
	Importance  float64          `json:"importance"`
}

// geocode runs the query against the configured geocoder. Queries shorter
// than MinQueryLength return no results without calling out.
func geocode(ctx context.Context, q GeocodeQuery) ([]GeocodeResponse, error) {
	q.Text = strings.TrimSpace(q.Text)
	if utf8.RuneCountInString(q.Text) < MinQueryLength {
		return []GeocodeResponse{}, nil
	}

	switch navConfig.Geocoder {
	case BackendNominatim:
		return geocodeNominatim(ctx, q)
	default:
		return geocodeMapbox(ctx, q)
	}
}

// geocodeNominatim performs geocoding using Nominatim
func geocodeNominatim(ctx context.Context, q GeocodeQuery) ([]GeocodeResponse, error) {
	// Build query parameters
	params := url.Values{
		"q":              {q.Text},
		"format":         {"json"},
		"limit":          {"5"},
		"addressdetails": {"1"},
		"namedetails":    {"1"},
	}
	if q.Country != "" {
		params.Set("countrycodes", string(q.Country))
	}

	apiURL := fmt.Sprintf("%s/search?%s", navConfig.NominatimURL, params.Encode())

	var nominatimResults []nominatimResponse
	if err := getJSON(ctx, apiURL, &nominatimResults); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}

	if len(nominatimResults) == 0 {
		return nil, &ErrNoResults{Query: q.Text}
	}

	// Convert nominatim results to our format
	results := make([]GeocodeResponse, len(nominatimResults))
	for i, result := range nominatimResults {
		lat, err := strconv.ParseFloat(result.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing latitude: %w", err)
		}
		lng, err := strconv.ParseFloat(result.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing longitude: %w", err)
		}

		// Format the address components
		name, addr, country := formatAddress(result.Address, result.NameDetails)

		results[i] = GeocodeResponse{
			Name:       name,
			Address:    addr,
			Lat:        lat,
			Lng:        lng,
			Importance: result.Importance,
			Country:    country,
		}
	}

	return results, nil
}
