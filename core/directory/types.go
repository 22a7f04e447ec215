// Package directory resolves a financial anchor's home domain to its service
// endpoints via the SEP-1 well-known metadata document (stellar.toml) and
// caches the result per domain.
//
// The Resolver extracts only the fields the payment core needs: the SEP-10
// web auth endpoint, the SEP-31 settlement endpoint, the network passphrase,
// the anchor signing key, and the supported currencies. Full TOML parsing is
// deliberately out of scope.
package directory

import "time"

// EndpointInfo represents the resolved service endpoints for one anchor
// domain, plus the cached bearer token once authentication has happened.
// A domain resolved with partial information (e.g. no auth endpoint) is still
// cached; callers needing the missing field treat its absence as an error
// rather than re-fetching.
type EndpointInfo struct {
	// Domain is the anchor home domain this info was resolved from.
	Domain string

	// NetworkPassphrase identifies the Stellar network (testnet/mainnet).
	NetworkPassphrase string

	// SigningKey is the anchor's public key used for SEP-10 challenges.
	SigningKey string

	// WebAuthEndpoint is the SEP-10 Stellar Web Authentication URL.
	// Empty if the anchor does not advertise one.
	WebAuthEndpoint string

	// SettlementEndpoint is the SEP-31 cross-border payments server URL.
	// Empty if the anchor does not advertise one.
	SettlementEndpoint string

	// Token is the bearer token obtained from SEP-10 authentication.
	// Set by the authenticator through the resolver, reused until the
	// token policy forces re-authentication.
	Token string

	// TokenObtainedAt records when Token was issued.
	TokenObtainedAt time.Time

	// Currencies lists assets supported by the anchor.
	Currencies []CurrencyInfo
}

// CurrencyInfo describes a Stellar asset supported by an anchor.
type CurrencyInfo struct {
	// Code is the asset code (e.g., "USDC").
	Code string

	// Issuer is the Stellar public key of the asset issuer.
	Issuer string

	// Status indicates if the asset is live, test, or disabled (optional).
	Status string

	// DisplayDecimals indicates the number of decimals to display (optional).
	DisplayDecimals int

	// AnchorAssetType indicates the asset type (e.g., "crypto", "fiat") (optional).
	AnchorAssetType string

	// Description provides a human-readable description of the asset (optional).
	Description string
}
