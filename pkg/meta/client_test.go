package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/resilience"
)

func newTestClient(srv *httptest.Server, opts ...Option) Client {
	base := []Option{
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetry(resilience.Policy{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}),
	}
	return NewClient("tok", "12345", append(base, opts...)...)
}

func TestCreateCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v21.0/act_12345/campaigns", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))
		assert.Equal(t, "Geofence Campaign", r.PostForm.Get("name"))
		assert.Equal(t, "OUTCOME_AWARENESS", r.PostForm.Get("objective"))
		assert.Equal(t, "PAUSED", r.PostForm.Get("status"))
		assert.Equal(t, `["ISSUES_ELECTIONS_POLITICS"]`, r.PostForm.Get("special_ad_categories"))
		assert.Empty(t, r.PostForm.Get("appsecret_proof"))

		_, _ = w.Write([]byte(`{"id":"c-1"}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv).CreateCampaign(context.Background(), CampaignParams{
		Name:                "Geofence Campaign",
		Objective:           "OUTCOME_AWARENESS",
		Status:              "PAUSED",
		SpecialAdCategories: []string{"ISSUES_ELECTIONS_POLITICS"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestCreateAdSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/act_12345/adsets", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "c-1", r.PostForm.Get("campaign_id"))
		assert.Equal(t, "1000", r.PostForm.Get("daily_budget"))
		assert.Equal(t, "100", r.PostForm.Get("bid_amount"))
		assert.NotEmpty(t, r.PostForm.Get("appsecret_proof"))

		var tg Targeting
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("targeting")), &tg))
		assert.Equal(t, []string{"home", "recent"}, tg.GeoLocations.LocationTypes)
		require.Len(t, tg.GeoLocations.CustomLocations, 1)
		assert.Equal(t, "kilometer", tg.GeoLocations.CustomLocations[0].DistanceUnit)

		_, _ = w.Write([]byte(`{"id":"as-9"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithAppSecret("shh"))
	id, err := c.CreateAdSet(context.Background(), AdSetParams{
		Name:        "Ashfield Geofence",
		CampaignID:  "c-1",
		DailyBudget: 1000,
		BidAmount:   100,
		Targeting: Targeting{GeoLocations: GeoLocations{
			LocationTypes:   []string{"home", "recent"},
			CustomLocations: []CustomLocation{{Latitude: 53.1, Longitude: -1.25, Radius: 2, DistanceUnit: "kilometer"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "as-9", id)
}

func TestCreate_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"User request limit reached","code":17}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"c-2"}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv).CreateCampaign(context.Background(), CampaignParams{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "c-2", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreate_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateAdSet(context.Background(), AdSetParams{Name: "Bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreate_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateCampaign(context.Background(), CampaignParams{Name: "x"})
	assert.Error(t, err)
}

func TestNewClient_KeepsActPrefix(t *testing.T) {
	c := NewClient("tok", "act_42").(*httpClient)
	assert.Equal(t, "act_42", c.accountID)
}

func TestAppSecretProof(t *testing.T) {
	a := appSecretProof("token", "secret")
	assert.Len(t, a, 64)
	assert.Equal(t, a, appSecretProof("token", "secret"))
	assert.NotEqual(t, a, appSecretProof("token", "other"))
}
