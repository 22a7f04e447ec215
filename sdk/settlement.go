package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/errors"
)

// AssetCapability describes what an anchor supports for one receivable asset,
// as reported by the SEP-31 /info resource.
type AssetCapability struct {
	Enabled    bool           `json:"enabled"`
	FeeFixed   float64        `json:"fee_fixed,omitempty"`
	FeePercent float64        `json:"fee_percent,omitempty"`
	MinAmount  float64        `json:"min_amount,omitempty"`
	MaxAmount  float64        `json:"max_amount,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// CapabilityInfo is the anchor's SEP-31 capability document: which assets it
// can receive and what fields each requires.
type CapabilityInfo struct {
	Receive map[string]AssetCapability `json:"receive"`
}

// Capabilities fetches the anchor's SEP-31 /info resource. Fails with
// ANCHOR_UNSUPPORTED if the directory has no settlement endpoint for the
// domain.
func (c *Client) Capabilities(ctx context.Context, domain string) (*CapabilityInfo, error) {
	info, err := c.resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, err
	}
	if info.SettlementEndpoint == "" {
		return nil, errors.NewClientError(
			errors.ANCHOR_UNSUPPORTED,
			fmt.Sprintf("anchor %s does not provide TRANSFER_SERVER_SEP0031 in stellar.toml", domain),
			nil,
		)
	}

	resp, err := c.httpClient.Get(ctx, info.SettlementEndpoint+"/info")
	if err != nil {
		return nil, errors.NewClientError(errors.CAPABILITIES_FAILED, "failed to fetch settlement capabilities", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewClientError(
			errors.CAPABILITIES_FAILED,
			fmt.Sprintf("capabilities request returned status %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var capabilities CapabilityInfo
	if err := json.NewDecoder(resp.Body).Decode(&capabilities); err != nil {
		return nil, errors.NewClientError(errors.CAPABILITIES_FAILED, "failed to decode capabilities JSON", err)
	}

	return &capabilities, nil
}

// InitiateSettlement POSTs a payment payload to the anchor's SEP-31
// transaction-creation resource with bearer auth and returns the created
// record. The payload is passed through unmodified.
//
// Token freshness is not managed here: a 401/403 surfaces as TOKEN_EXPIRED
// and the caller decides whether to re-authenticate and retry. Retrying
// initiation risks duplicate settlements unless the anchor deduplicates, so
// this client never retries it internally.
func (c *Client) InitiateSettlement(ctx context.Context, session *Session, payload payd.PaymentPayload) (*payd.SettlementRecord, error) {
	if err := c.validate.Struct(payload); err != nil {
		return nil, errors.NewPaymentError(errors.VALIDATION_FAILED, "invalid payment payload", err)
	}

	info, err := c.resolver.Resolve(ctx, session.Domain)
	if err != nil {
		return nil, err
	}
	if info.SettlementEndpoint == "" {
		return nil, errors.NewClientError(
			errors.ANCHOR_UNSUPPORTED,
			fmt.Sprintf("anchor %s does not provide TRANSFER_SERVER_SEP0031 in stellar.toml", session.Domain),
			nil,
		)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewClientError(errors.SETTLEMENT_REJECTED, "failed to marshal settlement payload", err)
	}

	resp, err := c.httpClient.PostAuth(ctx, info.SettlementEndpoint+"/transactions", bytes.NewReader(body), session.Token)
	if err != nil {
		return nil, errors.NewClientError(errors.SETTLEMENT_REJECTED, "failed to initiate settlement", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return nil, errors.NewClientError(
			errors.TOKEN_EXPIRED,
			fmt.Sprintf("anchor rejected the bearer token (status %d)", resp.StatusCode),
			nil,
		)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return nil, errors.NewClientError(
			errors.SETTLEMENT_REJECTED,
			fmt.Sprintf("settlement request returned status %d: %s", resp.StatusCode, string(detail)),
			nil,
		)
	}

	var record payd.SettlementRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, errors.NewClientError(errors.SETTLEMENT_REJECTED, "failed to decode settlement response JSON", err)
	}

	return &record, nil
}

// SettlementStatus fetches the settlement record for a given id. Fetching is
// idempotent; polling callers may retry on transient failures.
func (c *Client) SettlementStatus(ctx context.Context, session *Session, id string) (*payd.SettlementRecord, error) {
	info, err := c.resolver.Resolve(ctx, session.Domain)
	if err != nil {
		return nil, err
	}
	if info.SettlementEndpoint == "" {
		return nil, errors.NewClientError(
			errors.ANCHOR_UNSUPPORTED,
			fmt.Sprintf("anchor %s does not provide TRANSFER_SERVER_SEP0031 in stellar.toml", session.Domain),
			nil,
		)
	}

	resp, err := c.httpClient.GetAuth(ctx, fmt.Sprintf("%s/transactions/%s", info.SettlementEndpoint, id), session.Token)
	if err != nil {
		return nil, errors.NewClientError(
			errors.SETTLEMENT_STATUS_FAILED,
			fmt.Sprintf("failed to fetch settlement %s", id),
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return nil, errors.NewClientError(
			errors.TOKEN_EXPIRED,
			fmt.Sprintf("anchor rejected the bearer token (status %d)", resp.StatusCode),
			nil,
		)
	}
	if resp.StatusCode != 200 {
		detail, _ := io.ReadAll(resp.Body)
		return nil, errors.NewClientError(
			errors.SETTLEMENT_STATUS_FAILED,
			fmt.Sprintf("status request returned status %d: %s", resp.StatusCode, string(detail)),
			nil,
		)
	}

	// SEP-31 wraps the record in a "transaction" envelope.
	var statusResp struct {
		Transaction payd.SettlementRecord `json:"transaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return nil, errors.NewClientError(errors.SETTLEMENT_STATUS_FAILED, "failed to decode settlement status JSON", err)
	}

	return &statusResp.Transaction, nil
}
