package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/namelens/domainsearch/internal/core/engine"
)

// DefaultTrendsURL is the unofficial Google Trends multiline widget endpoint.
const DefaultTrendsURL = "https://trends.google.com/trends/api/widgetdata/multiline"

const (
	defaultTrendsRange = "2024-01-01 2025-01-31"
	trendsUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	trendsPrefixLen    = 5
)

// ErrNoTrendData is returned when Trends answers without a usable timeline.
var ErrNoTrendData = errors.New("no trends data available")

// TrendsClient fetches average interest for a keyword from Google Trends.
type TrendsClient struct {
	Client    *http.Client
	BaseURL   string
	TimeRange string
	Limiter   *engine.RateLimiter
	Clock     func() time.Time
}

// Score returns the keyword's mean interest over the configured range,
// clamped to [0, 100].
func (c *TrendsClient) Score(ctx context.Context, keyword string) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint, err := url.Parse(c.baseURL())
	if err != nil {
		return 0, fmt.Errorf("invalid trends url: %w", err)
	}
	host := endpoint.Hostname()

	wait, err := c.Limiter.Acquire(ctx, host)
	if err != nil {
		return 0, err
	}
	if wait > 0 {
		return 0, fmt.Errorf("%w: retry in %s", ErrRateLimited, wait.Round(time.Second))
	}

	endpoint.RawQuery = c.query(keyword).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", trendsUserAgent)

	resp, err := c.client().Do(req)
	if err != nil {
		return 0, fmt.Errorf("trends request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusTooManyRequests && c.Limiter != nil && host != "" {
		if wait := RetryAfter(resp); wait > 0 {
			_ = c.Limiter.Record429(ctx, host, wait)
		}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("trends returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read trends response: %w", err)
	}
	return ParseTrendsTimeline(body)
}

// ParseTrendsTimeline averages timelineData[].value[0] from a Trends widget
// payload, which carries a five byte anti-JSON-hijacking prefix.
func ParseTrendsTimeline(body []byte) (float64, error) {
	if len(body) <= trendsPrefixLen {
		return 0, ErrNoTrendData
	}
	payload := body[trendsPrefixLen:]
	if !gjson.ValidBytes(payload) {
		return 0, fmt.Errorf("malformed trends payload")
	}

	timeline := gjson.GetBytes(payload, "default.timelineData")
	if !timeline.Exists() {
		timeline = gjson.GetBytes(payload, "timelineData")
	}
	points := timeline.Array()
	sum, count := 0.0, 0
	for _, point := range points {
		value := point.Get("value.0")
		if !value.Exists() {
			continue
		}
		sum += value.Float()
		count++
	}
	if count == 0 {
		return 0, ErrNoTrendData
	}

	return math.Min(100, math.Max(0, sum/float64(count))), nil
}

func (c *TrendsClient) query(keyword string) url.Values {
	timeRange := c.TimeRange
	if strings.TrimSpace(timeRange) == "" {
		timeRange = defaultTrendsRange
	}
	reqJSON := fmt.Sprintf(`{"time":%s,"keyword":%s,"cat":"0"}`,
		strconv.Quote(timeRange), strconv.Quote(keyword))

	values := url.Values{}
	values.Set("hl", "en-US")
	values.Set("tz", "-240")
	values.Set("req", reqJSON)
	values.Set("token", "APP6_UEAAAAAY_"+strconv.FormatInt(c.now().UnixMilli(), 10))
	values.Set("tzp", "-240")
	return values
}

func (c *TrendsClient) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return NewRetryClient(defaultDemandTimeout, 1)
}

func (c *TrendsClient) baseURL() string {
	if c != nil && strings.TrimSpace(c.BaseURL) != "" {
		return strings.TrimSpace(c.BaseURL)
	}
	return DefaultTrendsURL
}

func (c *TrendsClient) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
