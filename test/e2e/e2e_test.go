// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergington-activities/internal/activities"
	"mergington-activities/internal/activities/store/memory"
	"mergington-activities/internal/activities/store/pgstore"
	"mergington-activities/internal/activities/store/redisstore"
	"mergington-activities/internal/api"
	apphttp "mergington-activities/internal/common/http"
	"mergington-activities/internal/common/logger"
	"mergington-activities/pkg/catalog"
)

type backend struct {
	name string
	open func(t *testing.T) activities.Store
}

func backends() []backend {
	list := []backend{
		{name: "memory", open: func(*testing.T) activities.Store { return memory.New() }},
		{name: "redis", open: func(t *testing.T) activities.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return redisstore.New(client, "e2e")
		}},
	}

	// Set E2E_POSTGRES_DSN to also run against a real database.
	if dsn := os.Getenv("E2E_POSTGRES_DSN"); dsn != "" {
		list = append(list, backend{name: "postgres", open: func(t *testing.T) activities.Store {
			db, err := sql.Open("postgres", dsn)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })

			store := pgstore.New(db)
			require.NoError(t, store.EnsureSchema(context.Background()))
			_, err = db.Exec(`TRUNCATE activities CASCADE`)
			require.NoError(t, err)
			return store
		}})
	}
	return list
}

// startServer seeds the default catalog into store and serves the full
// handler tree on a loopback listener.
func startServer(t *testing.T, store activities.Store, opts activities.Options) *apphttp.Client {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	registry := activities.NewRegistry(store, opts, nil, log)
	_, err = registry.Seed(context.Background(), activities.FromCatalog(cat))
	require.NoError(t, err)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<title>Mergington</title>"), 0o600))

	srv := httptest.NewServer(api.NewServer(api.Config{StaticDir: staticDir}, registry, log, nil).Routes())
	t.Cleanup(srv.Close)

	return apphttp.NewClient(srv.URL, 5*time.Second)
}

type activityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

type apiResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func listActivities(t *testing.T, c *apphttp.Client) map[string]activityView {
	t.Helper()
	var out map[string]activityView
	status, err := c.CallJSON(context.Background(), http.MethodGet, "/activities", nil, &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	return out
}

func call(t *testing.T, c *apphttp.Client, method, activity, email string) (int, apiResponse) {
	t.Helper()
	var body apiResponse
	status, err := c.CallJSON(context.Background(), method, apphttp.SignupPath(activity), url.Values{"email": {email}}, &body)
	require.NoError(t, err)
	return status, body
}

func TestFullE2E(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			c := startServer(t, b.open(t), activities.Options{})

			t.Run("root redirects to the static page", func(t *testing.T) {
				status, err := c.CallJSON(context.Background(), http.MethodGet, "/", nil, nil)
				require.NoError(t, err)
				assert.Equal(t, http.StatusTemporaryRedirect, status)

				status, err = c.CallJSON(context.Background(), http.MethodGet, "/static/index.html", nil, nil)
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, status)
			})

			t.Run("list exposes the seed set", func(t *testing.T) {
				list := listActivities(t, c)
				for _, name := range []string{"Chess Club", "Programming Class", "Gym Class"} {
					a, ok := list[name]
					require.True(t, ok, name)
					assert.NotEmpty(t, a.Description)
					assert.NotEmpty(t, a.Schedule)
					assert.Positive(t, a.MaxParticipants)
					assert.NotNil(t, a.Participants)
				}
				assert.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, list["Chess Club"].Participants)
			})

			t.Run("signup appends and rejects duplicates", func(t *testing.T) {
				status, body := call(t, c, http.MethodPost, "Gym Class", "newstudent@mergington.edu")
				require.Equal(t, http.StatusOK, status)
				assert.Equal(t, "Signed up newstudent@mergington.edu for Gym Class", body.Message)

				participants := listActivities(t, c)["Gym Class"].Participants
				assert.Equal(t, "newstudent@mergington.edu", participants[len(participants)-1])

				status, body = call(t, c, http.MethodPost, "Gym Class", "newstudent@mergington.edu")
				assert.Equal(t, http.StatusBadRequest, status)
				assert.Equal(t, "Student already signed up for this activity", body.Detail)
			})

			t.Run("unknown activity is 404 and changes nothing", func(t *testing.T) {
				before := listActivities(t, c)
				status, body := call(t, c, http.MethodPost, "UnknownClub", "someone@mergington.edu")
				assert.Equal(t, http.StatusNotFound, status)
				assert.Equal(t, "Activity not found", body.Detail)
				assert.Equal(t, before, listActivities(t, c))
			})

			t.Run("unregister round trip", func(t *testing.T) {
				status, body := call(t, c, http.MethodDelete, "Chess Club", "daniel@mergington.edu")
				require.Equal(t, http.StatusOK, status)
				assert.Equal(t, "Unregistered daniel@mergington.edu from Chess Club", body.Message)

				status, body = call(t, c, http.MethodDelete, "Chess Club", "daniel@mergington.edu")
				assert.Equal(t, http.StatusBadRequest, status)
				assert.Equal(t, "Student is not signed up for this activity", body.Detail)

				status, _ = call(t, c, http.MethodPost, "Chess Club", "daniel@mergington.edu")
				assert.Equal(t, http.StatusOK, status)
			})

			t.Run("concurrent duplicate signups leave one entry", func(t *testing.T) {
				const workers = 25
				statuses := make(chan int, workers)
				var wg sync.WaitGroup
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						status, _ := c.CallJSON(context.Background(), http.MethodPost,
							apphttp.SignupPath("Debate Team"), url.Values{"email": {"racer@mergington.edu"}}, nil)
						statuses <- status
					}()
				}
				wg.Wait()
				close(statuses)

				counts := map[int]int{}
				for s := range statuses {
					counts[s]++
				}
				assert.Equal(t, 1, counts[http.StatusOK])
				assert.Equal(t, workers-1, counts[http.StatusBadRequest])

				n := 0
				for _, p := range listActivities(t, c)["Debate Team"].Participants {
					if p == "racer@mergington.edu" {
						n++
					}
				}
				assert.Equal(t, 1, n)
			})

			t.Run("concurrent distinct signups are all recorded", func(t *testing.T) {
				const workers = 10
				var wg sync.WaitGroup
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						email := fmt.Sprintf("artist%d@mergington.edu", i)
						_, _ = c.CallJSON(context.Background(), http.MethodPost,
							apphttp.SignupPath("Art Club"), url.Values{"email": {email}}, nil)
					}(i)
				}
				wg.Wait()
				// Two seeded members plus every new signup.
				assert.Len(t, listActivities(t, c)["Art Club"].Participants, workers+2)
			})
		})
	}
}

func TestCapacityEnforcedE2E(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			c := startServer(t, b.open(t), activities.Options{EnforceCapacity: true})

			// Math Club seeds with capacity 10.
			list := listActivities(t, c)
			free := list["Math Club"].MaxParticipants - len(list["Math Club"].Participants)
			for i := 0; i < free; i++ {
				status, _ := call(t, c, http.MethodPost, "Math Club", fmt.Sprintf("m%d@mergington.edu", i))
				require.Equal(t, http.StatusOK, status)
			}

			status, body := call(t, c, http.MethodPost, "Math Club", "late@mergington.edu")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Activity is full", body.Detail)
		})
	}
}
