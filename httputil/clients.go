package httputil

import (
	"crypto/tls"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"stay_scout/config"
)

type Clients struct {
	Scraping *http.Client // proxied, paced, stops redirects, for availability checks
	Download *http.Client // proxied, paced, follows redirects, for image payloads
	API      *http.Client // direct, for Google Maps and Anthropic
}

// limitedTransport paces outbound requests. The scraping and download clients
// share one limiter so workers cannot burst against the platforms together.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyCfg != nil && proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			// Residential proxies tend to mangle HTTP/2, force plain HTTP/1.1.
			transport.ForceAttemptHTTP2 = false
			transport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
			log.Printf("Scraping clients using proxy: %s", proxyURL.Host)
		}
	}

	paced := &limitedTransport{
		base:    transport,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}

	return &Clients{
		Scraping: &http.Client{
			Timeout:   30 * time.Second,
			Transport: paced,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Download: &http.Client{
			Timeout:   60 * time.Second,
			Transport: paced,
		},
		API: &http.Client{Timeout: 30 * time.Second},
	}
}
