package nav

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoRoute is returned when the routing service cannot connect the locations
	ErrNoRoute = errors.New("no route found")
	// ErrMalformedResponse is returned when a provider payload fails schema validation
	ErrMalformedResponse = errors.New("malformed provider response")
)

const defaultTimeout = 10 * time.Second

var (
	httpClient = &http.Client{Timeout: defaultTimeout}
	validate   = validator.New()
)

// fetch performs a request and returns the status code and body
func fetch(ctx context.Context, method, apiURL string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("error building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("error reading response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// getJSON fetches apiURL and decodes a 200 response into out
func getJSON(ctx context.Context, apiURL string, out any) error {
	status, body, err := fetch(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", status, truncate(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// checkSchema validates a decoded provider payload
func checkSchema(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// truncate shortens a response body for error messages without splitting
// a UTF-8 sequence
func truncate(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
