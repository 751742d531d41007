package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwah/hudnav-server/hud"
	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/nav"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.toml", `
[nav]
mapbox_token = "pk.test"
timeout_seconds = 5

[tracker]
arrival_meters = 40
arrive_on_final_step = true

[settings]
path = "hud.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, nav.BackendMapbox, cfg.Nav.Router)
	assert.Equal(t, nav.BackendMapbox, cfg.Nav.Geocoder)
	assert.Equal(t, 5, cfg.Nav.TimeoutSeconds)
	assert.Equal(t, "hud.db", cfg.Settings.Path)

	sc := cfg.Session()
	assert.Equal(t, maneuver.Thresholds{Arrival: 40, FailsafeMaxDistance: 1000, FailsafeMargin: 50}, sc.Thresholds)
	assert.True(t, sc.ArriveOnFinalStep)
	assert.Equal(t, hud.DefaultAnimationFactor, sc.AnimationFactor)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
port: ":9090"
nav:
  router: valhalla
  geocoder: nominatim
  valhalla_url: http://localhost:8002
  nominatim_url: https://nominatim.openstreetmap.org
hud:
  animation_factor: 80
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, nav.BackendValhalla, cfg.Nav.Router)
	assert.Equal(t, "http://localhost:8002", cfg.Nav.ValhallaURL)
	assert.Equal(t, 80.0, cfg.Session().AnimationFactor)
	assert.Equal(t, maneuver.DefaultThresholds, cfg.Session().Thresholds)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		errText string
	}{
		{
			name:    "mapbox without token",
			file:    "config.toml",
			content: "[nav]\nrouter = \"mapbox\"\n",
			errText: "nav.mapbox_token",
		},
		{
			name:    "valhalla without url",
			file:    "config.toml",
			content: "[nav]\nrouter = \"valhalla\"\ngeocoder = \"nominatim\"\nnominatim_url = \"http://n\"\n",
			errText: "nav.valhalla_url",
		},
		{
			name:    "nominatim without url",
			file:    "config.toml",
			content: "[nav]\ngeocoder = \"nominatim\"\nmapbox_token = \"pk\"\n",
			errText: "nav.nominatim_url",
		},
		{
			name:    "unknown router",
			file:    "config.toml",
			content: "[nav]\nrouter = \"osrm\"\nmapbox_token = \"pk\"\n",
			errText: "invalid config",
		},
		{
			name:    "negative threshold",
			file:    "config.yml",
			content: "nav:\n  mapbox_token: pk\ntracker:\n  arrival_meters: -1\n",
			errText: "invalid config",
		},
		{
			name:    "bad toml",
			file:    "config.toml",
			content: "port = \n",
			errText: "error decoding config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
