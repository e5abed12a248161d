package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hotlabel/hotlabel/internal/adapters/catalog"
	service "github.com/hotlabel/hotlabel/internal/app"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/domain/ratelimit"
	"github.com/hotlabel/hotlabel/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init("text"); err != nil {
		panic(err)
	}
}

func testTasks() []model.Task {
	return []model.Task{
		{ID: "golden-1", Type: "vqa", Language: "en", Category: "object_detection", ComplexityLevel: 1, KnownAnswer: "yes"},
		{ID: "plain-1", Type: "vqa", Language: "en", Category: "object_detection", ComplexityLevel: 2},
		{ID: "plain-2", Type: "text_classification", Language: "en", Category: "sentiment", ComplexityLevel: 1},
	}
}

func newTestServer(t *testing.T, opts ...service.Option) *httptest.Server {
	t.Helper()
	opts = append([]service.Option{service.WithSource(catalog.New(testTasks()...))}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	NewServer(svc, svc).Register(context.Background(), mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Publisher-ID", "pub-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func initSessionBody() map[string]any {
	return map[string]any{
		"publisher_id": "pub-1",
		"client_info": map[string]any{
			"browser":  "firefox",
			"language": "en-US",
		},
	}
}

func startSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/users/sessions", initSessionBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("init session: status %d", resp.StatusCode)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatal("init session: no session_id")
	}
	return id
}

func TestInitSessionEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts := newTestServer(t)

		Convey("When a valid session init is posted", func() {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/users/sessions", initSessionBody())

			Convey("Then a session is created", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				sessionID, _ := body["session_id"].(string)
				So(strings.HasPrefix(sessionID, "sess_"), ShouldBeTrue)
				profile := body["profile"].(map[string]any)
				So(profile["expertise_level"], ShouldEqual, "beginner")
				So(profile["language"], ShouldEqual, "en")
			})

			Convey("Then rate-limit headers are exposed", func() {
				So(resp.Header.Get("X-RateLimit-Limit"), ShouldNotBeEmpty)
				So(resp.Header.Get("X-RateLimit-Remaining"), ShouldNotBeEmpty)
				So(resp.Header.Get("X-RateLimit-Reset"), ShouldNotBeEmpty)
			})
		})

		Convey("When the body is not JSON", func() {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/users/sessions", strings.NewReader("not json"))
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When required client info is missing", func() {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/users/sessions", map[string]any{
				"publisher_id": "pub-1",
				"client_info":  map[string]any{"browser": "firefox"},
			})

			Convey("Then validation fails", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestNextTaskEndpoint(t *testing.T) {
	Convey("Given the API server with a session", t, func() {
		ts := newTestServer(t)
		sessionID := startSession(t, ts)

		Convey("When the next task is fetched", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/next?session_id="+sessionID, nil)

			Convey("Then a calibration task is served without its answer", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["golden_set"], ShouldEqual, true)
				So(body["task_id"], ShouldEqual, "golden-1")
				_, hasAnswer := body["expected_answer"]
				So(hasAnswer, ShouldBeFalse)
			})
		})

		Convey("When the session id is missing", func() {
			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/next", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the session is unknown", func() {
			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/next?session_id=sess_unknown", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestSubmitEndpoint(t *testing.T) {
	Convey("Given a session with an assigned calibration task", t, func() {
		ts := newTestServer(t)
		sessionID := startSession(t, ts)
		resp, task := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/next?session_id="+sessionID, nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		taskID := task["task_id"].(string)

		Convey("When the exact golden answer is submitted", func() {
			resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%s/submit", ts.URL, taskID), map[string]any{
				"session_id":    sessionID,
				"response":      "yes",
				"time_spent_ms": 5000,
			})

			Convey("Then the top reward is granted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["quality_score"], ShouldEqual, 1.0)
				reward := body["reward"].(map[string]any)
				So(reward["type"], ShouldEqual, "content_access")
				So(reward["duration_seconds"], ShouldEqual, 7200)
				So(body["next_task_available"], ShouldEqual, true)
			})

			Convey("Then the session stats reflect the completion", func() {
				resp, stats := doJSON(t, http.MethodGet, ts.URL+"/v1/users/stats?session_id="+sessionID, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(stats["tasks_completed"], ShouldEqual, 1)
			})
		})

		Convey("When the response body misses required fields", func() {
			resp, _ := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/tasks/%s/submit", ts.URL, taskID), map[string]any{
				"session_id": sessionID,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the task was never assigned", func() {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/tasks/never-assigned/submit", map[string]any{
				"session_id":    sessionID,
				"response":      "yes",
				"time_spent_ms": 5000,
			})

			Convey("Then the submission fails without a reward", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, false)
				So(body["quality_score"], ShouldEqual, 0.2)
				reward := body["reward"].(map[string]any)
				So(reward["type"], ShouldEqual, "none")
			})
		})
	})
}

func TestBatchEndpoint(t *testing.T) {
	Convey("Given the API server with a session", t, func() {
		ts := newTestServer(t)
		sessionID := startSession(t, ts)

		Convey("When a batch is requested", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/batch?session_id="+sessionID+"&count=5", nil)

			Convey("Then regular tasks are returned under a batch id", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				batchID, _ := body["batch_id"].(string)
				So(strings.HasPrefix(batchID, "batch_"), ShouldBeTrue)
				tasks := body["tasks"].([]any)
				So(len(tasks), ShouldBeGreaterThan, 0)
				for _, raw := range tasks {
					task := raw.(map[string]any)
					So(task["task_id"], ShouldNotEqual, "golden-1")
				}
			})
		})

		Convey("When the session is unknown", func() {
			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/batch?session_id=sess_unknown", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the count is not a number", func() {
			resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/tasks/batch?session_id="+sessionID+"&count=lots", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestUpdateProfileEndpoint(t *testing.T) {
	Convey("Given the API server with a session", t, func() {
		ts := newTestServer(t)
		sessionID := startSession(t, ts)

		Convey("When strong performance metrics are reported", func() {
			resp, body := doJSON(t, http.MethodPatch, ts.URL+"/v1/users/profile/"+sessionID, map[string]any{
				"publisher_id": "pub-1",
				"performance_metrics": map[string]any{
					"accuracy":         0.92,
					"task_completions": 60,
				},
			})

			Convey("Then the profile is upgraded", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["expertise_level"], ShouldEqual, "expert")
				So(body["max_complexity"], ShouldEqual, 5)
			})
		})

		Convey("When the session is unknown", func() {
			resp, _ := doJSON(t, http.MethodPatch, ts.URL+"/v1/users/profile/sess_unknown", map[string]any{
				"publisher_id": "pub-1",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRateLimiting(t *testing.T) {
	Convey("Given the API server with a tight task quota", t, func() {
		ts := newTestServer(t, service.WithRateLimitRules([]ratelimit.RuleSpec{
			{Pattern: `^/v1/tasks/next`, Quota: "2/minute"},
		}, "100/minute"))
		sessionID := startSession(t, ts)

		Convey("When the quota is exhausted", func() {
			url := ts.URL + "/v1/tasks/next?session_id=" + sessionID
			for range 2 {
				resp, _ := doJSON(t, http.MethodGet, url, nil)
				So(resp.StatusCode, ShouldNotEqual, http.StatusTooManyRequests)
			}
			resp, body := doJSON(t, http.MethodGet, url, nil)

			Convey("Then further requests are rejected with window state", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
				So(body["code"], ShouldEqual, "rate_limited")
				So(resp.Header.Get("X-RateLimit-Remaining"), ShouldEqual, "0")
				So(resp.Header.Get("X-RateLimit-Reset"), ShouldNotBeEmpty)
			})

			Convey("Then the health endpoint stays reachable", func() {
				resp, err := http.Get(ts.URL + "/healthz")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts := newTestServer(t)

		Convey("When stats are requested", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/stats", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["backend"], ShouldEqual, "memory")
		})

		Convey("When health is probed", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
