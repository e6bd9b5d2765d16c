package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mergington-activities/pkg/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useCatalog(t *testing.T, path string) {
	t.Helper()
	prev := catalogPath
	catalogPath = path
	t.Cleanup(func() { catalogPath = prev })
}

func TestAddActivity(t *testing.T) {
	useCatalog(t, filepath.Join(t.TempDir(), "activities.json"))

	robotics := catalog.Entry{
		Name:            "Robotics Club",
		Description:     "Build and program robots",
		Schedule:        "Mondays, 4:00 PM - 5:30 PM",
		MaxParticipants: 8,
		Participants:    []string{},
	}
	require.NoError(t, addActivity(robotics))
	require.NoError(t, addActivity(catalog.Entry{
		Name:            "Film Club",
		Description:     "Watch and discuss films",
		Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
		MaxParticipants: 20,
	}))

	err := addActivity(robotics)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `activity "Robotics Club" already exists`)

	cat, err := catalog.Load(catalogPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cat.Version)
	assert.Equal(t, []string{"Robotics Club", "Film Club"}, cat.Names())
}

func TestDiffServer(t *testing.T) {
	useCatalog(t, "")

	def, err := catalog.Default()
	require.NoError(t, err)
	live := make(map[string]catalog.Entry, len(def.Activities))
	for _, e := range def.Activities {
		live[e.Name] = e
	}
	delete(live, "Chess Club")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/activities", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(live)
	}))
	defer srv.Close()

	drift, err := diffServer(srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chess Club: missing on server"}, drift)
}

func TestDiffServer_BadStatus(t *testing.T) {
	useCatalog(t, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"storage unavailable"}`))
	}))
	defer srv.Close()

	_, err := diffServer(srv.URL, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 503")
}
