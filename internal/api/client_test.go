package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTaskID     = "3f1c2a8e-6b0d-4d7e-9a51-0c2b7f6e9d10"
	testRawID      = "9b7d4c1a-2e3f-4a5b-8c6d-7e8f9a0b1c2d"
	testInfluencer = "5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c8d"
	testDraftID    = "0d1e2f3a-4b5c-4d6e-9f70-8192a3b4c5d6"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api/v1", WithUserID("tester"), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c, server
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestCreateSearchTask_SendsBodyAndHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/search-tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "tester", r.Header.Get("X-User-Id"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "US tech youtubers 10k+", body["query"])
		assert.Equal(t, []any{"youtube"}, body["platforms"])
		_, hasRegion := body["region"]
		assert.False(t, hasRegion, "nil filters must be omitted")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id":"` + testTaskID + `","status":"pending"}`))
	})

	resp, err := c.CreateSearchTask(context.Background(), CreateSearchTaskRequest{Query: "  US tech youtubers 10k+ "})
	require.NoError(t, err)
	assert.Equal(t, testTaskID, resp.TaskID)
	assert.Equal(t, StatusPending, resp.Status)
}

func TestCreateSearchTask_EmptyQueryIssuesNoRequest(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := c.CreateSearchTask(context.Background(), CreateSearchTaskRequest{Query: "   "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestServerErrorUnwrapsDetail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"task not found"}`))
	})

	_, err := c.GetSearchTask(context.Background(), testTaskID)
	require.Error(t, err)
	assert.True(t, IsServer(err))
	assert.False(t, IsNetwork(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "task not found")
}

func TestServerErrorKeepsPlainBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.ListInfluencers(context.Background(), ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestMalformedSuccessBodyIsServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id": `))
	})

	_, err := c.GetSearchTask(context.Background(), testTaskID)
	require.Error(t, err)
	assert.True(t, IsServer(err))
	assert.False(t, IsNetwork(err))
	assert.Equal(t, http.StatusOK, StatusCode(err))
	assert.Contains(t, err.Error(), "malformed response body")

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Error(t, se.Err)
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL + "/api/v1"
	server.Close()

	c, err := NewClient(base, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.GetSearchTask(context.Background(), testTaskID)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestCancelledContextIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetSearchTask(ctx, testTaskID)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListSearchTasks_Paging(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search-tasks", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		w.Write([]byte(`[{"task_id":"` + testTaskID + `","query_raw":"fitness","status":"running","result_count":0,
			"created_at":"2026-01-02T03:04:05Z","updated_at":"2026-01-02T03:04:06Z"}]`))
	})

	items, err := c.ListSearchTasks(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fitness", items[0].QueryRaw)
	assert.Equal(t, StatusRunning, items[0].Status)

	_, err = c.ListSearchTasks(context.Background(), ListOptions{Limit: 500})
	assert.True(t, IsValidation(err))
}

func TestGetSearchResults_DecodesNullables(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search-tasks/"+testTaskID+"/results", r.URL.Path)
		w.Write([]byte(`[{"deduped_id":"d1","raw_result_id":"` + testRawID + `","dedup_status":"unique",
			"matched_influencer_id":null,"platform":"youtube","platform_user_id":"UC1","display_name":"Alice",
			"profile_url":"https://youtube.com/@alice","follower_count":12000,"email":null}]`))
	})

	items, err := c.GetSearchResults(context.Background(), testTaskID)
	require.NoError(t, err)

	followers := 12000
	want := []SearchResult{{
		DedupedID:      "d1",
		RawResultID:    testRawID,
		DedupStatus:    "unique",
		Platform:       "youtube",
		PlatformUserID: "UC1",
		DisplayName:    "Alice",
		ProfileURL:     "https://youtube.com/@alice",
		FollowerCount:  &followers,
	}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, items[0].IsUnique())
}

func TestGetSearchTask_RejectsNonUUID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.GetSearchTask(context.Background(), "../influencers")
	assert.True(t, IsValidation(err))
}

func TestSaveInfluencers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/influencers/save", r.URL.Path)
		var body SaveInfluencersRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testTaskID, body.TaskID)
		assert.Equal(t, []string{testRawID}, body.SelectedResultIDs)
		w.Write([]byte(`{"saved_count":1,"skipped_count":0}`))
	})

	out, err := c.SaveInfluencers(context.Background(), SaveInfluencersRequest{
		TaskID:            testTaskID,
		SelectedResultIDs: []string{testRawID},
	})
	require.NoError(t, err)
	assert.Equal(t, SaveInfluencersResponse{SavedCount: 1}, out)

	_, err = c.SaveInfluencers(context.Background(), SaveInfluencersRequest{TaskID: testTaskID})
	assert.True(t, IsValidation(err))
}

func TestGenerateDraft_AppliesDefaults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body GenerateDraftRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultTone, body.Tone)
		assert.Equal(t, DefaultLanguage, body.Language)
		w.Write([]byte(`{"id":"` + testDraftID + `","subject":"Hi","body":"Hello {{name}}","variables":{"name":"Alice"},
			"created_at":"2026-01-02T03:04:05Z"}`))
	})

	draft, err := c.GenerateDraft(context.Background(), GenerateDraftRequest{
		Goal:          "Invite influencer for product collaboration",
		InfluencerIDs: []string{testInfluencer},
	})
	require.NoError(t, err)
	assert.Equal(t, testDraftID, draft.ID)
	assert.Equal(t, "Alice", draft.Variables["name"])

	_, err = c.GenerateDraft(context.Background(), GenerateDraftRequest{Goal: "x", InfluencerIDs: []string{"nope"}})
	assert.True(t, IsValidation(err))
}

func TestSendCampaignAndEvents(t *testing.T) {
	const campaignID = "7c8d9e0f-1a2b-4c3d-8e4f-5a6b7c8d9e0f"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/campaigns/send":
			var body SendCampaignRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 30, body.SendRateLimit)
			w.Write([]byte(`{"campaign_id":"` + campaignID + `","accepted_count":1}`))
		case strings.HasSuffix(r.URL.Path, "/events"):
			w.Write([]byte(`[{"event_id":"e1","message_id":"m1","event_type":"delivered",
				"occurred_at":"2026-01-02T03:04:05Z","raw_payload":{"type":"email.delivered"}}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	sent, err := c.SendCampaign(context.Background(), SendCampaignRequest{
		DraftID:       testDraftID,
		InfluencerIDs: []string{testInfluencer},
		SendRateLimit: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, campaignID, sent.CampaignID)

	events, err := c.GetCampaignEvents(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "delivered", events[0].EventType)
	assert.JSONEq(t, `{"type":"email.delivered"}`, string(events[0].RawPayload))
}

func TestHealthUsesServerRoot(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"draft not found"}`, "draft not found"},
		{"validation list", `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"no detail", `{"error":"x"}`, ""},
		{"not json", `boom`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	st, err := ParseTaskStatus("done")
	require.NoError(t, err)
	assert.True(t, st.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())

	_, err = ParseTaskStatus("archived")
	assert.Error(t, err)
}

func TestObserverSeesEveryCall(t *testing.T) {
	var calls []Call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"detail":"already saved"}`))
			return
		}
		w.Write([]byte(`{"task_id":"` + testTaskID + `","status":"running","result_count":0}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api/v1", WithObserver(func(call Call) { calls = append(calls, call) }))
	require.NoError(t, err)

	_, err = c.GetSearchTask(context.Background(), testTaskID)
	require.NoError(t, err)
	_, err = c.SaveInfluencers(context.Background(), SaveInfluencersRequest{TaskID: testTaskID, SelectedResultIDs: []string{testRawID}})
	require.Error(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, "get search task", calls[0].Op)
	assert.Equal(t, http.StatusOK, calls[0].Status)
	assert.NoError(t, calls[0].Err)
	assert.Equal(t, http.MethodPost, calls[1].Method)
	assert.Equal(t, http.StatusConflict, calls[1].Status)
	assert.True(t, IsServer(calls[1].Err))
	assert.NotEqual(t, calls[0].RequestID, calls[1].RequestID)
}
