package directory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/errors"
)

const (
	defaultCacheTTL   = 5 * time.Minute
	wellKnownPath     = "/.well-known/stellar.toml"
	maxCurrencyArrays = 100
	maxTomlSize       = 1024 * 1024
)

// Resolver fetches and caches SEP-1 endpoint metadata per anchor domain.
// Concurrent first resolutions of the same domain are collapsed into one
// fetch via a per-domain lock; the cache itself is injectable so callers
// control the eviction policy.
type Resolver struct {
	client *net.Client
	cache  Cache
	log    logrus.FieldLogger

	flightMu sync.Mutex
	inFlight map[string]*sync.Mutex
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache sets the endpoint cache (default: TTLCache with a 5 minute TTL).
func WithCache(cache Cache) ResolverOption {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithLogger sets the structured logger for resolution events.
func WithLogger(log logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a Resolver backed by the given HTTP client.
func NewResolver(client *net.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:   client,
		cache:    NewTTLCache(defaultCacheTTL),
		log:      logrus.StandardLogger(),
		inFlight: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the endpoint info for an anchor domain, fetching and
// parsing its stellar.toml on a cache miss. Failures are never cached.
func (r *Resolver) Resolve(ctx context.Context, domain string) (*EndpointInfo, error) {
	if info, ok := r.cache.Get(domain); ok {
		return info, nil
	}

	// Serialize concurrent first resolutions of the same domain so only one
	// fetch runs; losers pick the winner's entry out of the cache.
	lock := r.domainLock(domain)
	lock.Lock()
	defer lock.Unlock()

	if info, ok := r.cache.Get(domain); ok {
		return info, nil
	}

	// Domains are normally bare hostnames; an explicit scheme is honored so
	// local anchors can be addressed directly.
	url := domain
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	url = strings.TrimSuffix(url, "/") + wellKnownPath

	r.log.WithField("domain", domain).Debug("fetching stellar.toml")

	resp, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, errors.NewCoreError(errors.DISCOVERY_FAILED, fmt.Sprintf("failed to fetch stellar.toml from %s", domain), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.NewCoreError(errors.DISCOVERY_FAILED, fmt.Sprintf("stellar.toml fetch returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTomlSize))
	if err != nil {
		return nil, errors.NewCoreError(errors.DISCOVERY_FAILED, "failed to read stellar.toml response", err)
	}

	info, err := r.parse(domain, string(body))
	if err != nil {
		return nil, err
	}

	if info.SigningKey != "" && !strings.HasPrefix(info.SigningKey, "G") {
		return nil, errors.NewCoreError(errors.DISCOVERY_INVALID, fmt.Sprintf("invalid SIGNING_KEY format: %s", info.SigningKey), nil)
	}

	r.cache.Put(domain, info)
	return info, nil
}

// SetToken stores a bearer token on the cached entry for a domain. The token
// is reused for authenticated calls until the caller's token policy forces
// re-authentication or InvalidateToken is called.
func (r *Resolver) SetToken(domain, token string) {
	info, ok := r.cache.Get(domain)
	if !ok {
		return
	}
	updated := *info
	updated.Token = token
	updated.TokenObtainedAt = time.Now()
	r.cache.Put(domain, &updated)
}

// InvalidateToken clears the bearer token for a domain without dropping the
// resolved endpoints.
func (r *Resolver) InvalidateToken(domain string) {
	info, ok := r.cache.Get(domain)
	if !ok {
		return
	}
	updated := *info
	updated.Token = ""
	updated.TokenObtainedAt = time.Time{}
	r.cache.Put(domain, &updated)
}

// Invalidate drops the cached entry for a domain entirely.
func (r *Resolver) Invalidate(domain string) {
	r.cache.Invalidate(domain)
}

func (r *Resolver) domainLock(domain string) *sync.Mutex {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	lock, ok := r.inFlight[domain]
	if !ok {
		lock = &sync.Mutex{}
		r.inFlight[domain] = lock
	}
	return lock
}

// parse extracts the fields of interest from a stellar.toml document using
// line-oriented key matching. Unknown keys and sections are skipped.
func (r *Resolver) parse(domain, content string) (*EndpointInfo, error) {
	info := &EndpointInfo{Domain: domain}
	lines := strings.Split(content, "\n")

	var inCurrencies bool
	var currentCurrency *CurrencyInfo

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[[CURRENCIES]]") {
			if currentCurrency != nil && currentCurrency.Code != "" {
				info.Currencies = append(info.Currencies, *currentCurrency)
				if len(info.Currencies) >= maxCurrencyArrays {
					break
				}
			}
			inCurrencies = true
			currentCurrency = &CurrencyInfo{}
			continue
		}

		if strings.HasPrefix(line, "[[") || strings.HasPrefix(line, "[") {
			if currentCurrency != nil && currentCurrency.Code != "" {
				info.Currencies = append(info.Currencies, *currentCurrency)
			}
			inCurrencies = false
			currentCurrency = nil
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")

		if inCurrencies && currentCurrency != nil {
			switch key {
			case "code":
				currentCurrency.Code = value
			case "issuer":
				currentCurrency.Issuer = value
			case "status":
				currentCurrency.Status = value
			case "display_decimals":
				fmt.Sscanf(value, "%d", &currentCurrency.DisplayDecimals)
			case "anchor_asset_type":
				currentCurrency.AnchorAssetType = value
			case "description":
				currentCurrency.Description = value
			}
		} else {
			switch key {
			case "NETWORK_PASSPHRASE":
				info.NetworkPassphrase = value
			case "SIGNING_KEY":
				info.SigningKey = value
			case "WEB_AUTH_ENDPOINT":
				info.WebAuthEndpoint = value
			case "TRANSFER_SERVER_SEP0031":
				info.SettlementEndpoint = value
			}
		}
	}

	if currentCurrency != nil && currentCurrency.Code != "" {
		info.Currencies = append(info.Currencies, *currentCurrency)
	}

	return info, nil
}
