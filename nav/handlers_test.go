package nav

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/position"
	"github.com/nwah/hudnav-server/session"
	"github.com/nwah/hudnav-server/settings"
)

func TestHandleRouteGet(t *testing.T) {
	srv, _ := mapboxDirections(t)
	useConfig(t, NavConfig{MapboxURL: srv.URL, MapboxToken: "tok"})

	req := httptest.NewRequest(http.MethodGet, "/nav/route?from=37.7749,-122.4194&to=37.7849,-122.4094&units=mi&toDesc=Ferry", nil)
	rec := httptest.NewRecorder()
	HandleRoute(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, UnitMiles, result.Units)
	assert.Equal(t, "Ferry", result.To.Desc)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, 37.7799, result.Steps[1].Lat)
	assert.Equal(t, -122.4144, result.Steps[1].Lng)
}

func TestHandleRouteGetValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing to", "from=1,2"},
		{"bad mode", "from=1,2&to=3,4&mode=teleport"},
		{"bad units", "from=1,2&to=3,4&units=leagues"},
		{"bad from", "from=north&to=3,4"},
		{"out of range", "from=91,2&to=3,4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleRoute(rec, httptest.NewRequest(http.MethodGet, "/nav/route?"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleRouteGetNoRoute(t *testing.T) {
	srv, _ := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "NoRoute", "message": "No route found"}`))
	})
	useConfig(t, NavConfig{MapboxURL: srv.URL, MapboxToken: "tok"})

	rec := httptest.NewRecorder()
	HandleRoute(rec, httptest.NewRequest(http.MethodGet, "/nav/route?from=1,2&to=3,4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRoutePlainText(t *testing.T) {
	srv, _ := mapboxDirections(t)
	useConfig(t, NavConfig{MapboxURL: srv.URL, MapboxToken: "tok"})

	body := "auto\nkm\n37.7749,-122.4194\n37.7849,-122.4094\nHome\nFerry\n"
	rec := httptest.NewRecorder()
	HandleRoute(rec, httptest.NewRequest(http.MethodPost, "/nav/route", strings.NewReader(body)))

	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	want := strings.Join([]string{
		"2min",
		"1.5 km",
		"3",
		"straight",
		"Head north on Market St (1.0 km)",
		"left",
		"Turn left on Main St (500 m)",
		"arrive",
		"Arrive at destination",
	}, "\n") + "\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestHandleRoutePlainTextErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleRoute(rec, httptest.NewRequest(http.MethodPost, "/nav/route", strings.NewReader("auto\nkm\n")))
	assert.Equal(t, "\n\n0\nrequest must contain at least 4 lines\n", rec.Body.String())

	rec = httptest.NewRecorder()
	HandleRoute(rec, httptest.NewRequest(http.MethodPost, "/nav/route", strings.NewReader("auto\nkm\nhere\n3,4\n")))
	assert.Equal(t, "\n\n0\ninvalid 'from' coordinates\n", rec.Body.String())
}

func TestHandleGeocode(t *testing.T) {
	var proximity string
	srv, _ := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		proximity = r.URL.Query().Get("proximity")
		w.Write([]byte(mapboxPlaces))
	})
	useConfig(t, NavConfig{MapboxURL: srv.URL, MapboxToken: "tok"})

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleGeocode(rec, httptest.NewRequest(http.MethodGet, "/nav/geocode?q=ferry&near=37.7749,-122.4194", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var results []GeocodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "Ferry Building", results[0].Name)
		assert.Equal(t, "-122.419400,37.774900", proximity)
	})

	t.Run("plain text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleGeocode(rec, httptest.NewRequest(http.MethodPost, "/nav/geocode", strings.NewReader("ferry building")))
		lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "1", lines[0])
		assert.Equal(t, "37.7955,-122.3937", lines[1])
		assert.Equal(t, "Ferry Building", lines[2])
		assert.Equal(t, "us", lines[4])
	})

	t.Run("validation", func(t *testing.T) {
		for _, query := range []string{"", "?q=ferry&near=x", "?q=ferry&country=usa"} {
			rec := httptest.NewRecorder()
			HandleGeocode(rec, httptest.NewRequest(http.MethodGet, "/nav/geocode"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})

	t.Run("method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleGeocode(rec, httptest.NewRequest(http.MethodDelete, "/nav/geocode", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

// useSessions installs a session manager routing through the fake Mapbox
// directions server
func useSessions(t *testing.T) *session.Manager {
	t.Helper()
	srv, _ := mapboxDirections(t)
	useConfig(t, NavConfig{MapboxURL: srv.URL, MapboxToken: "tok"})

	m := session.NewManager(Router{Mode: ModeAuto}, session.Config{})
	prev := sessions
	SetSessions(m)
	t.Cleanup(func() { SetSessions(prev) })
	return m
}

// callSession invokes a session handler with the {id} path value set
func callSession(t *testing.T, h http.HandlerFunc, method, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/nav/sessions/"+id, strings.NewReader(body))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()
	var v session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSessionFlow(t *testing.T) {
	m := useSessions(t)

	rec := httptest.NewRecorder()
	HandleCreateSession(rec, httptest.NewRequest(http.MethodPost, "/nav/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeView(t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/nav/sessions/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, session.PhaseDestinationSelect, created.Phase)
	assert.Equal(t, maneuver.StateIdle, created.Frame.State)
	id := created.ID

	// navigating before any fix is a conflict
	rec = callSession(t, HandleSessionNavigate, http.MethodPost, id, `{"lat": 37.7849, "lng": -122.4094}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, session.PhaseError, decodeView(t, rec).Phase)

	fix := `{"lat": 37.7749, "lng": -122.4194, "speed": 10}`
	rec = callSession(t, HandleSessionFix, http.MethodPost, id, fix)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, "36", v.Frame.Speed)
	assert.Equal(t, "km/h", v.Frame.Unit)

	rec = callSession(t, HandleSessionNavigate, http.MethodPost, id, `{"lat": 37.7849, "lng": -122.4094}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, session.PhaseNavigating, v.Phase)
	assert.Equal(t, 0, v.Frame.StepIndex)
	assert.Equal(t, 3, v.Frame.StepCount)
	assert.Equal(t, "Head north on Market St", v.Frame.Instruction)

	// standing on the first maneuver completes it
	v = decodeView(t, callSession(t, HandleSessionFix, http.MethodPost, id, fix))
	assert.Equal(t, 1, v.Frame.StepIndex)
	assert.Equal(t, "Turn left on Main St", v.Frame.Instruction)
	assert.Equal(t, "left", string(v.Frame.Icon))
	assert.NotEqual(t, "--", v.Frame.DistanceToTurn)

	v = decodeView(t, callSession(t, HandleSessionUnits, http.MethodPost, id, `{"imperial": true}`))
	assert.True(t, v.Imperial)
	assert.Equal(t, "mph", v.Frame.Unit)
	assert.Equal(t, "22", v.Frame.Speed)

	v = decodeView(t, callSession(t, HandleSessionSkip, http.MethodPost, id, ""))
	assert.Equal(t, 2, v.Frame.StepIndex)
	v = decodeView(t, callSession(t, HandleSessionSkip, http.MethodPost, id, ""))
	assert.Equal(t, 2, v.Frame.StepIndex, "skip clamps to the last step")

	v = decodeView(t, callSession(t, HandleGetSession, http.MethodGet, id, ""))
	assert.Equal(t, "Arrive at destination", v.Frame.Instruction)

	v = decodeView(t, callSession(t, HandleSessionExit, http.MethodPost, id, ""))
	assert.Equal(t, session.PhaseDestinationSelect, v.Phase)
	assert.Equal(t, maneuver.StateIdle, v.Frame.State)

	rec = callSession(t, HandleDeleteSession, http.MethodDelete, id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, m.Len())

	rec = callSession(t, HandleGetSession, http.MethodGet, id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFixValidation(t *testing.T) {
	m := useSessions(t)
	id := m.Create().ID

	for _, body := range []string{
		`{"lat": 91, "lng": 0}`,
		`{"lat": 1, "lng": 2, "heading": 360}`,
		`{"speed": -1}`,
		`{"error": "offline"}`,
		`not json`,
	} {
		rec := callSession(t, HandleSessionFix, http.MethodPost, id, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSessionPositionError(t *testing.T) {
	m := useSessions(t)
	id := m.Create().ID

	v := decodeView(t, callSession(t, HandleSessionFix, http.MethodPost, id, `{"error": "denied"}`))
	assert.Equal(t, position.ErrPermissionDenied.Error(), v.PositionError)
	assert.Equal(t, session.PhaseDestinationSelect, v.Phase)

	v = decodeView(t, callSession(t, HandleSessionFix, http.MethodPost, id, `{"error": "unsupported"}`))
	assert.Equal(t, position.ErrUnsupported.Error(), v.PositionError)
}

func TestSessionUnknownID(t *testing.T) {
	useSessions(t)
	for _, h := range []http.HandlerFunc{HandleGetSession, HandleSessionSkip, HandleSessionExit, HandleDeleteSession} {
		rec := callSession(t, h, http.MethodPost, "missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

// streamServer serves the session stream endpoint and returns its ws URL
func streamServer(t *testing.T, id string) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /nav/sessions/{id}/stream", HandleSessionStream)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/nav/sessions/" + id + "/stream"
}

// dialStream connects and consumes the initial view
func dialStream(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var v session.View
	require.NoError(t, conn.ReadJSON(&v))
	return conn
}

func sendFix(t *testing.T, conn *websocket.Conn, req FixRequest) session.View {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var v session.View
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func TestSessionStream(t *testing.T) {
	m := useSessions(t)
	s := m.Create()

	conn, _, err := websocket.DefaultDialer.Dial(streamServer(t, s.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	var v session.View
	require.NoError(t, conn.ReadJSON(&v))
	assert.Equal(t, s.ID, v.ID)
	assert.Equal(t, "--", v.Frame.Speed)

	lat, lng, speed := 37.7749, -122.4194, 20.0
	v = sendFix(t, conn, FixRequest{Lat: &lat, Lng: &lng, Speed: &speed})
	assert.Equal(t, "72", v.Frame.Speed)
	assert.Equal(t, 5.0, v.Frame.AnimationSeconds)

	heading := 400.0
	require.NoError(t, conn.WriteJSON(FixRequest{Heading: &heading}))
	var errResp ErrorResponse
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestSessionStreamRecoversFromPositionError(t *testing.T) {
	m := useSessions(t)
	s := m.Create()
	conn := dialStream(t, streamServer(t, s.ID))

	v := sendFix(t, conn, FixRequest{Error: "denied"})
	assert.Equal(t, position.ErrPermissionDenied.Error(), v.PositionError)

	// the stream stays usable and the next good fix clears the error
	lat, lng, speed := 37.7749, -122.4194, 20.0
	v = sendFix(t, conn, FixRequest{Lat: &lat, Lng: &lng, Speed: &speed})
	assert.Equal(t, "72", v.Frame.Speed)
	assert.Empty(t, v.PositionError)
}

func TestSessionStreamReconnect(t *testing.T) {
	m := useSessions(t)
	s := m.Create()
	wsURL := streamServer(t, s.ID)

	older := dialStream(t, wsURL)
	newer := dialStream(t, wsURL)

	// the old socket closing must not detach the new one
	require.NoError(t, older.Close())
	// the old handler sees the close and runs its deferred cleanup
	time.Sleep(100 * time.Millisecond)

	lat, lng, speed := 37.7749, -122.4194, 30.0
	v := sendFix(t, newer, FixRequest{Lat: &lat, Lng: &lng, Speed: &speed})
	assert.Equal(t, "108", v.Frame.Speed)
}

func TestHandleSettings(t *testing.T) {
	prev := settingsStore
	SetSettingsStore(settings.NewMemoryStore())
	t.Cleanup(func() { SetSettingsStore(prev) })

	rec := httptest.NewRecorder()
	HandleSettings(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got settings.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settings.Defaults, got)

	body, _ := json.Marshal(settings.Settings{Color: "#22c55e", TextSizeMultiplier: 1.5})
	rec = httptest.NewRecorder()
	HandleSettings(rec, httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HandleSettings(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settings.Settings{Color: "#22c55e", TextSizeMultiplier: 1.5}, got)

	for _, bad := range []string{
		`{"color": "cyan", "textSizeMultiplier": 1}`,
		`{"color": "#ffffff", "textSizeMultiplier": 0}`,
		`{"color": "#ffffff", "textSizeMultiplier": 4}`,
		`{`,
	} {
		rec = httptest.NewRecorder()
		HandleSettings(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(bad)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}
