package scraper

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/identity"
	"github.com/aluiziolira/go-scrape-races/models"
)

var tracer = otel.Tracer("github.com/aluiziolira/go-scrape-races/scraper")

// Client fetches result pages, retrying internally only on the target's block
// status. It is not safe for concurrent use; a run owns one Client.
type Client struct {
	cfg       *config.Config
	rotator   *identity.Rotator
	metrics   *Metrics
	collector *colly.Collector

	plain         http.RoundTripper
	impersonating http.RoundTripper

	sleep func(context.Context, time.Duration) error
}

// NewClient builds a synchronous collector configured from cfg.
func NewClient(cfg *config.Config, rotator *identity.Rotator, metrics *Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rotator == nil {
		rotator = identity.NewRotator()
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.ParseHTTPErrorResponse = true

	c := &Client{
		cfg:       cfg,
		rotator:   rotator,
		metrics:   metrics,
		collector: collector,
		sleep:     sleepContext,
	}
	c.useTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	c.configureHandlers()
	return c, nil
}

// useTransport installs base as the plain transport and derives the
// browser-fingerprint transport from a copy of it.
func (c *Client) useTransport(base http.RoundTripper) {
	c.plain = base
	inner := base
	if t, ok := base.(*http.Transport); ok {
		inner = t.Clone()
	}
	c.impersonating = cloudflarebp.AddCloudFlareByPass(inner)
}

func (c *Client) configureHandlers() {
	c.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
	})
	c.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", r.StatusCode)
		r.Ctx.Put("body", r.Body)
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			c.metrics.ObserveDuration(time.Since(start))
		}
	})
}

// Fetch retrieves target, rotating identity on every attempt.
func (c *Client) Fetch(ctx context.Context, target models.TargetURL) (out models.FetchOutcome) {
	ctx, span := tracer.Start(ctx, "scraper.Fetch", trace.WithAttributes(attribute.String("url", target.URL)))
	defer func() {
		span.SetAttributes(
			attribute.String("fetch.outcome", out.Kind.String()),
			attribute.Int("fetch.attempts", out.Attempts),
			attribute.Int("http.status_code", out.Status),
		)
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.End()
	}()

	budget := c.cfg.BlockAttempts
	if budget < 1 {
		budget = 1
	}

	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.FetchOutcome{Kind: models.OutcomeNetworkError, Err: err, Attempts: attempt - 1}
		}

		id := c.rotator.Next()
		status, body, err := c.do(target.URL, id)

		switch {
		case err != nil:
			c.metrics.IncRequest("network_error")
			classified := classifyError(err, 0)
			slog.Debug("request failed",
				slog.String("url", target.URL),
				slog.String("identity", id.Name),
				slog.String("category", errorTypeLabel(classified)),
				slog.Any("error", err),
			)
			return models.FetchOutcome{Kind: models.OutcomeNetworkError, Err: classified, Attempts: attempt}

		case status == c.cfg.BlockStatus:
			c.metrics.IncRequest("blocked")
			slog.Debug("block status received",
				slog.String("url", target.URL),
				slog.String("identity", id.Name),
				slog.Int("attempt", attempt),
				slog.Int("budget", budget),
			)
			if attempt < budget {
				c.metrics.IncBlockRetry()
				if err := c.sleep(ctx, c.retryDelay(attempt)); err != nil {
					return models.FetchOutcome{Kind: models.OutcomeNetworkError, Err: err, Attempts: attempt}
				}
			}

		case status >= http.StatusOK && status < http.StatusMultipleChoices:
			c.metrics.IncRequest("success")
			return models.FetchOutcome{Kind: models.OutcomeSuccess, Status: status, Body: body, Attempts: attempt}

		default:
			c.metrics.IncRequest("http_error")
			return models.FetchOutcome{
				Kind:     models.OutcomeHTTPError,
				Status:   status,
				Err:      classifyError(nil, status),
				Attempts: attempt,
			}
		}
	}

	return models.FetchOutcome{
		Kind:     models.OutcomeBlocked,
		Status:   c.cfg.BlockStatus,
		Err:      ErrBlocked{Status: c.cfg.BlockStatus, Attempts: budget},
		Attempts: budget,
	}
}

func (c *Client) do(url string, id identity.Identity) (int, []byte, error) {
	if id.Impersonate {
		c.collector.WithTransport(c.impersonating)
	} else {
		c.collector.WithTransport(c.plain)
	}

	rctx := colly.NewContext()
	err := c.collector.Request(http.MethodGet, url, nil, rctx, id.Header())
	status, _ := rctx.GetAny("status").(int)
	body, _ := rctx.GetAny("body").([]byte)
	if err != nil && status != 0 {
		// The response arrived; colly only rejected it after the fact.
		err = nil
	}
	return status, body, err
}

// retryDelay is the pause before block retry number attempt+1.
func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
