// Package discovery lists result-page URLs for dates or for course/year ranges.
// Its output is the URL list the scraper consumes: deduplicated, sorted and
// fully qualified.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-races/courses"
	"github.com/aluiziolira/go-scrape-races/models"
)

const courseLinkSelector = `a[data-test-selector="link-listCourseNameLink"]`

// Client talks to the publisher's listing pages and course API.
type Client struct {
	base    string
	http    *resty.Client
	limiter *rate.Limiter
}

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
	limit     rate.Limit
	burst     int
	userAgent string
}

// Option configures a Client.
type Option func(*options)

// WithTransport replaces the inner transport; the browser-fingerprint layer
// still wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps requests per second.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) { o.limit, o.burst = limit, burst }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewClient builds a rate-limited listing client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	o := options{
		timeout:   14 * time.Second,
		limit:     2,
		burst:     2,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := strings.TrimRight(baseURL, "/")
	httpClient := resty.New()
	httpClient.SetBaseURL(base)
	if o.transport != nil {
		httpClient.SetTransport(o.transport)
	}
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("User-Agent", o.userAgent)
	httpClient.SetTimeout(o.timeout)

	c := &Client{
		base:    base,
		http:    httpClient,
		limiter: rate.NewLimiter(o.limit, o.burst),
	}
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})
	return c
}

// ByDate lists the races run on dates at courses in region.
func (c *Client) ByDate(ctx context.Context, dates []time.Time, region string, lookup courses.Lookup) ([]string, error) {
	allowed := map[string]struct{}{}
	for _, course := range lookup.RegionCourses(region) {
		allowed[course.ID] = struct{}{}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("no courses known for region %q", region)
	}

	urls := map[string]struct{}{}
	for _, day := range dates {
		path := "/results/" + day.Format(time.DateOnly)
		res, err := c.http.R().SetContext(ctx).Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("failed to get results listing", slog.String("path", path), slog.Any("error", err))
			continue
		}
		if res.StatusCode() != http.StatusOK {
			slog.Warn("failed to get results listing", slog.String("path", path), slog.Int("status", res.StatusCode()))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			slog.Warn("unreadable results listing", slog.String("path", path), slog.Any("error", err))
			continue
		}
		doc.Find(courseLinkSelector).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			target, err := models.ParseTargetURL(c.base + href)
			if err != nil {
				return
			}
			if _, ok := allowed[target.CourseID]; ok {
				urls[target.URL] = struct{}{}
			}
		})
	}
	return sorted(urls), nil
}

type raceUID string

func (u *raceUID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		s = ""
	}
	*u = raceUID(strings.Trim(s, `"`))
	return nil
}

type courseResults struct {
	Data struct {
		Races []struct {
			Datetime string  `json:"raceDatetime"`
			ID       raceUID `json:"raceInstanceUid"`
		} `json:"principleRaceResults"`
	} `json:"data"`
}

// ByCourse lists every race at tracks in the given years for one racing code.
func (c *Client) ByCourse(ctx context.Context, tracks []courses.Course, years []string, code models.RaceCode) ([]string, error) {
	if code == models.CodeUnknown {
		return nil, fmt.Errorf("course discovery needs a racing code")
	}

	urls := map[string]struct{}{}
	for _, track := range tracks {
		for _, year := range years {
			path := fmt.Sprintf("/profile/course/filter/results/%s/%s/%s/all-races", strings.ToLower(track.ID), year, code)

			var body courseResults
			res, err := c.http.R().
				SetContext(ctx).
				ForceContentType("application/json").
				SetResult(&body).
				Get(path)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Warn("failed to get race list", slog.String("course", track.Name), slog.Any("error", err))
				continue
			}
			if res.StatusCode() != http.StatusOK {
				slog.Warn("failed to get race list", slog.String("course", track.Name), slog.Int("status", res.StatusCode()))
				continue
			}

			for _, race := range body.Data.Races {
				if len(race.Datetime) < len(time.DateOnly) || race.ID == "" {
					continue
				}
				u := fmt.Sprintf("%s/results/%s/%s/%s/%s", c.base, track.ID, track.Slug(), race.Datetime[:len(time.DateOnly)], race.ID)
				urls[u] = struct{}{}
			}
		}
	}
	return sorted(urls), nil
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
