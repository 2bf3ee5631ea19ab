// Package meta creates geofenced campaigns through the Marketing (Graph) API.
package meta

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bubble-cli/internal/resilience"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v21.0"
)

// Client defines the Marketing API operations used by the uploader.
type Client interface {
	CreateCampaign(ctx context.Context, p CampaignParams) (string, error)
	CreateAdSet(ctx context.Context, p AdSetParams) (string, error)
}

// CampaignParams describes a campaign to create.
type CampaignParams struct {
	Name                string
	Objective           string
	Status              string
	SpecialAdCategories []string
}

// AdSetParams describes an ad set to create. Budgets are in the account's
// minor currency unit.
type AdSetParams struct {
	Name             string
	CampaignID       string
	DailyBudget      int
	BidAmount        int
	BillingEvent     string
	OptimizationGoal string
	Status           string
	Targeting        Targeting
}

// Targeting is the ad set targeting spec.
type Targeting struct {
	GeoLocations         GeoLocations  `json:"geo_locations"`
	ExcludedGeoLocations *GeoLocations `json:"excluded_geo_locations,omitempty"`
}

// GeoLocations restricts delivery to custom radius locations.
type GeoLocations struct {
	LocationTypes   []string         `json:"location_types,omitempty"`
	CustomLocations []CustomLocation `json:"custom_locations"`
}

// CustomLocation is one radius target.
type CustomLocation struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Radius       float64 `json:"radius"`
	DistanceUnit string  `json:"distance_unit"`
}

// APIError is the error object the Graph API returns.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	TraceID string `json:"fbtrace_id"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Graph API host.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIVersion pins the Graph API version, e.g. "v21.0".
func WithAPIVersion(v string) Option {
	return func(c *httpClient) { c.version = v }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit throttles calls to rps requests per second; 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for throttled and 5xx responses.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

// WithAppSecret signs every call with appsecret_proof.
func WithAppSecret(secret string) Option {
	return func(c *httpClient) { c.appSecret = secret }
}

type httpClient struct {
	token     string
	accountID string
	appSecret string
	baseURL   string
	version   string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.Policy
}

// NewClient creates a Marketing API client for an ad account. The "act_"
// prefix is added to accountID when missing.
func NewClient(token, accountID string, opts ...Option) Client {
	if !strings.HasPrefix(accountID, "act_") {
		accountID = "act_" + accountID
	}
	c := &httpClient{
		token:     token,
		accountID: accountID,
		baseURL:   defaultBaseURL,
		version:   defaultAPIVersion,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(2, 1),
		retry:     resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateCampaign(ctx context.Context, p CampaignParams) (string, error) {
	cats, err := json.Marshal(nonNilStrings(p.SpecialAdCategories))
	if err != nil {
		return "", eris.Wrap(err, "meta: marshal ad categories")
	}
	form := url.Values{
		"name":                  {p.Name},
		"objective":             {p.Objective},
		"status":                {p.Status},
		"special_ad_categories": {string(cats)},
	}
	id, err := c.create(ctx, "campaigns", form)
	return id, eris.Wrapf(err, "meta: create campaign %q", p.Name)
}

func (c *httpClient) CreateAdSet(ctx context.Context, p AdSetParams) (string, error) {
	targeting, err := json.Marshal(p.Targeting)
	if err != nil {
		return "", eris.Wrap(err, "meta: marshal targeting")
	}
	form := url.Values{
		"name":              {p.Name},
		"campaign_id":       {p.CampaignID},
		"daily_budget":      {strconv.Itoa(p.DailyBudget)},
		"bid_amount":        {strconv.Itoa(p.BidAmount)},
		"billing_event":     {p.BillingEvent},
		"optimization_goal": {p.OptimizationGoal},
		"status":            {p.Status},
		"targeting":         {string(targeting)},
	}
	id, err := c.create(ctx, "adsets", form)
	return id, eris.Wrapf(err, "meta: create ad set %q", p.Name)
}

// create posts form to the account edge and returns the new object's id.
func (c *httpClient) create(ctx context.Context, edge string, form url.Values) (string, error) {
	form.Set("access_token", c.token)
	if c.appSecret != "" {
		form.Set("appsecret_proof", appSecretProof(c.token, c.appSecret))
	}
	endpoint := c.baseURL + "/" + c.version + "/" + c.accountID + "/" + edge

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", eris.Wrap(err, "meta: rate limit")
			}
		}
		return c.post(ctx, endpoint, form)
	})
}

func (c *httpClient) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "meta: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "meta: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "meta: read response")
	}

	if resp.StatusCode != http.StatusOK {
		var env struct {
			Error APIError `json:"error"`
		}
		msg := string(body)
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return "", &resilience.StatusError{Service: "meta", Code: resp.StatusCode, Body: msg}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", eris.Wrap(err, "meta: unmarshal response")
	}
	if created.ID == "" {
		return "", eris.New("meta: response has no id")
	}
	return created.ID, nil
}

// appSecretProof is the hex HMAC-SHA256 of the token keyed by the app secret.
func appSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
