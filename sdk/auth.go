package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/errors"
)

// Session represents an authenticated connection to a Stellar anchor. It
// contains the bearer token for making authenticated settlement requests.
type Session struct {
	// Domain is the anchor's home domain (e.g., "anchor.example.com")
	Domain string

	// Account is the Stellar account address (G...) that was authenticated
	Account string

	// Token is the bearer token to use in Authorization headers
	Token string

	// ObtainedAt records when the token was issued
	ObtainedAt time.Time

	// client is the parent Client that created this session
	client *Client
}

// IsValid reports whether the session's token is still acceptable under the
// client's token policy. Anchors may reject a token earlier than the policy
// predicts; callers should re-login on TOKEN_EXPIRED either way.
func (s *Session) IsValid() bool {
	return s.client.tokenPolicy.Reusable(s.ObtainedAt)
}

// Login authenticates with an anchor using SEP-10 Web Authentication:
//
//  1. Discovers the anchor's WEB_AUTH_ENDPOINT via stellar.toml
//  2. Fetches an authentication challenge transaction from the anchor
//  3. Signs the challenge locally using the provided signer
//  4. Submits the signed challenge back to the anchor
//  5. Receives a bearer token, caches it in the endpoint directory, and
//     returns it wrapped in a Session
//
// Each call is a single attempt; retrying is the caller's decision. If the
// anchor advertises no auth endpoint the call fails with ANCHOR_UNSUPPORTED
// before any request is made to an auth endpoint, so callers can distinguish
// "anchor unsupported" from "network down".
func (c *Client) Login(ctx context.Context, account, domain string, signer payd.Signer) (*Session, error) {
	info, err := c.resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, err
	}

	if info.WebAuthEndpoint == "" {
		return nil, errors.NewClientError(
			errors.ANCHOR_UNSUPPORTED,
			fmt.Sprintf("anchor %s does not provide WEB_AUTH_ENDPOINT in stellar.toml", domain),
			nil,
		)
	}

	challengeURL := fmt.Sprintf("%s?account=%s", info.WebAuthEndpoint, account)
	resp, err := c.httpClient.Get(ctx, challengeURL)
	if err != nil {
		return nil, errors.NewClientError(
			errors.CHALLENGE_FETCH_FAILED,
			fmt.Sprintf("failed to fetch challenge from %s", challengeURL),
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewClientError(
			errors.CHALLENGE_FETCH_FAILED,
			fmt.Sprintf("challenge request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var challengeResp struct {
		Transaction       string `json:"transaction"`
		NetworkPassphrase string `json:"network_passphrase"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&challengeResp); err != nil {
		return nil, errors.NewClientError(
			errors.CHALLENGE_INVALID,
			"failed to decode challenge response JSON",
			err,
		)
	}
	if challengeResp.Transaction == "" {
		return nil, errors.NewClientError(
			errors.CHALLENGE_INVALID,
			"challenge response contains no transaction",
			nil,
		)
	}

	// The anchor may omit the network passphrase; fall back to the client's.
	// When both are present they must agree.
	passphrase := challengeResp.NetworkPassphrase
	if passphrase == "" {
		passphrase = c.networkPassphrase
	} else if c.networkPassphrase != "" && passphrase != c.networkPassphrase {
		return nil, errors.NewClientError(
			errors.CHALLENGE_INVALID,
			fmt.Sprintf("network passphrase mismatch: expected %s, got %s", c.networkPassphrase, passphrase),
			nil,
		)
	}

	// The signing identity's private key material never leaves the signer.
	signedXDR, err := signer.SignTransaction(ctx, challengeResp.Transaction, passphrase)
	if err != nil {
		return nil, errors.NewClientError(
			errors.SIGNER_ERROR,
			"failed to sign challenge transaction",
			err,
		)
	}

	submitBody, err := json.Marshal(map[string]string{
		"transaction": signedXDR,
	})
	if err != nil {
		return nil, errors.NewClientError(
			errors.AUTH_REJECTED,
			"failed to marshal submit payload",
			err,
		)
	}

	submitResp, err := c.httpClient.Post(ctx, info.WebAuthEndpoint, bytes.NewReader(submitBody))
	if err != nil {
		return nil, errors.NewClientError(
			errors.AUTH_REJECTED,
			"failed to submit signed challenge",
			err,
		)
	}
	defer submitResp.Body.Close()

	if submitResp.StatusCode != 200 {
		body, _ := io.ReadAll(submitResp.Body)
		return nil, errors.NewClientError(
			errors.AUTH_REJECTED,
			fmt.Sprintf("auth submission returned status %d: %s", submitResp.StatusCode, string(body)),
			nil,
		)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}

	if err := json.NewDecoder(submitResp.Body).Decode(&tokenResp); err != nil {
		return nil, errors.NewClientError(
			errors.AUTH_REJECTED,
			"failed to decode token response JSON",
			err,
		)
	}
	if tokenResp.Token == "" {
		return nil, errors.NewClientError(
			errors.AUTH_REJECTED,
			"auth submission returned an empty token",
			nil,
		)
	}

	c.resolver.SetToken(domain, tokenResp.Token)
	c.log.WithFields(logrus.Fields{
		"domain":  domain,
		"account": account,
	}).Debug("authenticated with anchor")

	return &Session{
		Domain:     domain,
		Account:    account,
		Token:      tokenResp.Token,
		ObtainedAt: time.Now(),
		client:     c,
	}, nil
}

// ensureSession returns a session for the domain, reusing the directory's
// cached token when the token policy allows and logging in otherwise.
func (c *Client) ensureSession(ctx context.Context, account, domain string, signer payd.Signer) (*Session, error) {
	info, err := c.resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, err
	}

	if info.Token != "" && c.tokenPolicy.Reusable(info.TokenObtainedAt) {
		return &Session{
			Domain:     domain,
			Account:    account,
			Token:      info.Token,
			ObtainedAt: info.TokenObtainedAt,
			client:     c,
		}, nil
	}

	return c.Login(ctx, account, domain, signer)
}
