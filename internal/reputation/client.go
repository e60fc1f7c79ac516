// Package reputation asks an external service whether an IP looks like a
// VPN, proxy, or non-residential address. The service is a black box that may
// fail; callers decide what a failure means (the risk scorer fails open).
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"yukifiles/pkg/cache"
)

type Flags struct {
	IP          string `json:"ip"`
	VPN         bool   `json:"vpn"`
	Proxy       bool   `json:"proxy"`
	Tor         bool   `json:"tor"`
	Hosting     bool   `json:"hosting"`
	Residential bool   `json:"residential"`
	Country     string `json:"country"`
}

type Checker interface {
	Check(ctx context.Context, ip string) (*Flags, error)
}

type Config struct {
	APIURL  string        `env:"REPUTATION_API_URL" env-default:""`
	APIKey  string        `env:"REPUTATION_API_KEY" env-default:""`
	Timeout time.Duration `env:"REPUTATION_TIMEOUT" env-default:"5s"`
}

type HTTPChecker struct {
	cfg    Config
	client *http.Client
}

func NewHTTPChecker(cfg Config) *HTTPChecker {
	return &HTTPChecker{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, ip string) (*Flags, error) {
	if c.cfg.APIURL == "" {
		// no service configured: private/loopback addresses are trusted,
		// everything else is reported clean
		return &Flags{IP: ip, Residential: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.APIURL+"?ip="+url.QueryEscape(ip), nil)
	if err != nil {
		return nil, fmt.Errorf("build reputation request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reputation lookup: unexpected status %d", resp.StatusCode)
	}

	var flags Flags
	if err := json.NewDecoder(resp.Body).Decode(&flags); err != nil {
		return nil, fmt.Errorf("decode reputation response: %w", err)
	}
	flags.IP = ip
	return &flags, nil
}

// CachedChecker memoizes lookups per IP; reputation flags change slowly and
// the upstream call is the expensive part of every assessment.
type CachedChecker struct {
	inner Checker
	cache *cache.Cache[*Flags]
	ttl   time.Duration
}

func NewCachedChecker(inner Checker, ttl time.Duration) *CachedChecker {
	return &CachedChecker{
		inner: inner,
		cache: cache.New[*Flags](ttl),
		ttl:   ttl,
	}
}

func (c *CachedChecker) Check(ctx context.Context, ip string) (*Flags, error) {
	return cache.WithCache(c.cache, ip, c.ttl, func() (*Flags, error) {
		return c.inner.Check(ctx, ip)
	})
}

// StartSweeper evicts expired entries every interval until stop is closed,
// bounding memory between lookups of distinct IPs.
func (c *CachedChecker) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	c.cache.StartSweeper(interval, stop)
}
