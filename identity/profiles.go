package identity

import "net/http"

func chromiumHeaders(platform, brand string) http.Header {
	return http.Header{
		"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"},
		"Accept-Language":           {"en-GB,en;q=0.9"},
		"Cache-Control":             {"max-age=0"},
		"Sec-Ch-Ua":                 {brand},
		"Sec-Ch-Ua-Mobile":          {"?0"},
		"Sec-Ch-Ua-Platform":        {platform},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
		"Upgrade-Insecure-Requests": {"1"},
	}
}

func geckoHeaders() http.Header {
	return http.Header{
		"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
		"Accept-Language":           {"en-GB,en;q=0.5"},
		"Dnt":                       {"1"},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
		"Upgrade-Insecure-Requests": {"1"},
	}
}

// DefaultProfiles alternates transport flavour so consecutive retries never share
// both a header set and a TLS fingerprint.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:        "chrome124-windows",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			Headers:     chromiumHeaders(`"Windows"`, `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`),
			Impersonate: true,
		},
		{
			Name:      "firefox126-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
			Headers:   geckoHeaders(),
		},
		{
			Name:        "chrome123-macos",
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			Headers:     chromiumHeaders(`"macOS"`, `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`),
			Impersonate: true,
		},
		{
			Name:      "safari17-macos",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15",
			Headers: http.Header{
				"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
				"Accept-Language": {"en-GB,en;q=0.9"},
			},
		},
		{
			Name:        "edge124-windows",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
			Headers:     chromiumHeaders(`"Windows"`, `"Chromium";v="124", "Microsoft Edge";v="124", "Not-A.Brand";v="99"`),
			Impersonate: true,
		},
		{
			Name:      "firefox125-linux",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
			Headers:   geckoHeaders(),
		},
	}
}
