package nav

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/position"
	"github.com/nwah/hudnav-server/session"
	"github.com/nwah/hudnav-server/settings"
)

var (
	sessions      *session.Manager
	settingsStore settings.Store = settings.NewMemoryStore()

	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// the HUD page is served from the phone's browser, any origin
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

// SetSessions sets the session manager used by the session handlers
func SetSessions(m *session.Manager) {
	sessions = m
}

// SetSettingsStore sets where HUD settings are persisted
func SetSettingsStore(s settings.Store) {
	settingsStore = s
}

// lookupSession resolves the {id} path value, writing an error when missing
func lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions are not enabled")
		return nil, false
	}
	s, err := sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

// decodeBody decodes and validates a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// positionError maps the client's failure label onto a position error
func positionError(label string) error {
	if label == "unsupported" {
		return position.ErrUnsupported
	}
	return position.ErrPermissionDenied
}

// HandleCreateSession handles POST /nav/sessions
func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions are not enabled")
		return
	}
	s := sessions.Create()
	log.Printf("Debug: Created session %s", s.ID)
	w.Header().Set("Location", "/nav/sessions/"+s.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s.View())
}

// HandleGetSession handles GET /nav/sessions/{id}
func HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.View())
}

// HandleDeleteSession handles DELETE /nav/sessions/{id}
func HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions are not enabled")
		return
	}
	if err := sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSessionFix handles POST /nav/sessions/{id}/fix
func HandleSessionFix(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	var req FixRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Error != "" {
		s.HandlePositionError(positionError(req.Error))
		writeJSON(w, s.View())
		return
	}
	writeJSON(w, s.HandleFix(req.Fix()))
}

// HandleSessionNavigate handles POST /nav/sessions/{id}/navigate
func HandleSessionNavigate(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	var req NavigateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := s.Navigate(r.Context(), geo.Point{Lat: req.Lat, Lon: req.Lng})
	if err != nil {
		log.Printf("Debug: Session %s navigate failed: %v", s.ID, err)
		status := errorStatus(err)
		switch {
		case errors.Is(err, session.ErrNoFix):
			status = http.StatusConflict
		case errors.Is(err, maneuver.ErrInvalidRoute):
			status = http.StatusBadGateway
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(view)
		return
	}
	writeJSON(w, view)
}

// HandleSessionSkip handles POST /nav/sessions/{id}/skip
func HandleSessionSkip(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.Skip())
}

// HandleSessionExit handles POST /nav/sessions/{id}/exit
func HandleSessionExit(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.Exit())
}

// HandleSessionUnits handles POST /nav/sessions/{id}/units
func HandleSessionUnits(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	var req UnitsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, s.SetImperial(req.Imperial))
}

// HandleSessionStream handles GET /nav/sessions/{id}/stream. The client
// sends FixRequest messages and receives the session view after each one.
// A newer stream for the same session takes over the fix subscription.
func HandleSessionStream(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Debug: Session %s websocket upgrade failed: %v", s.ID, err)
		return
	}
	defer conn.Close()

	stream := position.NewStream()
	detach := s.Attach(stream)
	defer detach()
	log.Printf("Debug: Session %s streaming", s.ID)

	if err := conn.WriteJSON(s.View()); err != nil {
		return
	}

	for {
		var req FixRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Debug: Session %s stream closed: %v", s.ID, err)
			}
			return
		}
		if err := validate.Struct(req); err != nil {
			if err := conn.WriteJSON(ErrorResponse{Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		// a reported error is shown until the next good fix, as on /fix
		if req.Error != "" {
			s.HandlePositionError(positionError(req.Error))
		} else {
			stream.Publish(req.Fix())
		}
		if err := conn.WriteJSON(s.View()); err != nil {
			return
		}
	}
}

// HandleSettings handles GET and PUT /settings
func HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s, err := settings.Load(r.Context(), settingsStore)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, s)

	case http.MethodPut:
		var s settings.Settings
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if err := settings.Save(r.Context(), settingsStore, s); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, settings.ErrInvalid) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		log.Printf("Debug: Saved settings color=%s size=%v", s.Color, s.TextSizeMultiplier)
		writeJSON(w, s)

	default:
		writeError(w, http.StatusMethodNotAllowed, "only GET and PUT methods are allowed")
	}
}
