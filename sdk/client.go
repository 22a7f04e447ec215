// Package sdk provides client-side integration with Stellar anchors for the
// payd payment core. It discovers anchor endpoints via stellar.toml (SEP-1),
// manages authentication sessions (SEP-10), initiates and tracks cross-border
// settlements (SEP-31), and orchestrates the full pre-submission pipeline
// (recipient checks, dry-run simulation, fee recommendation) for a payment.
package sdk

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/core/directory"
	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/errors"
	"github.com/gildado/payd-go/fees"
	"github.com/gildado/payd-go/simulate"
	"github.com/gildado/payd-go/store/memory"
)

const defaultTokenMaxAge = 23 * time.Hour

// Client is the entry point for integrating with Stellar anchors. All
// collaborators are owned, explicitly constructed instances injected at
// build time; there is no ambient global state.
type Client struct {
	networkPassphrase string
	horizonURL        string
	rpcURL            string

	httpClient     *net.Client
	resolver       *directory.Resolver
	feeAdvisor     *fees.Advisor
	simulator      *simulate.Simulator
	accountChecker payd.AccountChecker
	store          payd.PaymentStore
	hooks          *payd.HookRegistry
	tokenPolicy    payd.TokenPolicy
	validate       *validator.Validate
	log            logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client for network requests.
func WithHTTPClient(client *net.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithHorizon sets the Horizon base URL used for fee statistics and
// submission-validation fallback.
func WithHorizon(url string) ClientOption {
	return func(c *Client) {
		c.horizonURL = url
	}
}

// WithSorobanRPC sets the Soroban RPC URL used for dry-run simulation.
func WithSorobanRPC(url string) ClientOption {
	return func(c *Client) {
		c.rpcURL = url
	}
}

// WithResolver sets the endpoint directory resolver.
func WithResolver(resolver *directory.Resolver) ClientOption {
	return func(c *Client) {
		c.resolver = resolver
	}
}

// WithAccountChecker enables recipient pre-validation against the ledger.
func WithAccountChecker(checker payd.AccountChecker) ClientOption {
	return func(c *Client) {
		c.accountChecker = checker
	}
}

// WithPaymentStore sets the local payment store (default: in-memory).
func WithPaymentStore(store payd.PaymentStore) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithHooks sets the lifecycle hook registry.
func WithHooks(hooks *payd.HookRegistry) ClientOption {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// WithTokenPolicy sets the bearer token reuse policy
// (default: reuse while fresher than 23 hours).
func WithTokenPolicy(policy payd.TokenPolicy) ClientOption {
	return func(c *Client) {
		c.tokenPolicy = policy
	}
}

// WithLogger sets the structured logger.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new payd anchor client. The networkPassphrase
// identifies the Stellar network (e.g., "Test SDF Network ; September 2015").
// Horizon and Soroban RPC URLs are required for the fee advisor and the
// simulator; either may be omitted if those components are unused.
func NewClient(networkPassphrase string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		networkPassphrase: networkPassphrase,
		hooks:             payd.NewHookRegistry(),
		tokenPolicy:       payd.ReuseWhileFresh(defaultTokenMaxAge),
		validate:          validator.New(),
		log:               logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = net.NewClient(net.WithLogger(client.log))
	}
	if client.resolver == nil {
		client.resolver = directory.NewResolver(client.httpClient, directory.WithLogger(client.log))
	}
	if client.store == nil {
		client.store = memory.NewPaymentStore()
	}
	if client.horizonURL != "" {
		client.feeAdvisor = fees.NewAdvisor(client.httpClient, client.horizonURL)
	}
	if client.rpcURL != "" && client.horizonURL != "" {
		simulator, err := simulate.NewSimulator(client.httpClient, client.rpcURL, client.horizonURL, simulate.WithLogger(client.log))
		if err != nil {
			return nil, errors.NewPaymentError(errors.CONFIG_INVALID, "failed to construct simulator", err)
		}
		client.simulator = simulator
	}

	return client, nil
}

// Resolver exposes the endpoint directory for advanced callers.
func (c *Client) Resolver() *directory.Resolver {
	return c.resolver
}

// Fees exposes the fee advisor, or nil if no Horizon URL was configured.
func (c *Client) Fees() *fees.Advisor {
	return c.feeAdvisor
}

// Simulator exposes the transaction simulator, or nil if no RPC URL was
// configured.
func (c *Client) Simulator() *simulate.Simulator {
	return c.simulator
}

// Hooks exposes the lifecycle hook registry for handler registration.
func (c *Client) Hooks() *payd.HookRegistry {
	return c.hooks
}

// Store exposes the local payment store.
func (c *Client) Store() payd.PaymentStore {
	return c.store
}
