// Package account verifies payment destinations against the ledger before
// fees are spent on a transaction that cannot succeed.
package account

import (
	"context"
	"fmt"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/errors"
)

// HorizonAccountChecker implements payd.AccountChecker using a Horizon server.
type HorizonAccountChecker struct {
	client *horizonclient.Client
}

// NewHorizonAccountChecker creates an AccountChecker backed by the given Horizon URL.
func NewHorizonAccountChecker(horizonURL string) *HorizonAccountChecker {
	return &HorizonAccountChecker{
		client: &horizonclient.Client{HorizonURL: horizonURL},
	}
}

// CheckRecipient verifies that the destination account exists and, for
// non-native assets, holds a trustline for the asset code. These are the two
// conditions that surface on-chain as op_no_destination and op_no_trust.
func (c *HorizonAccountChecker) CheckRecipient(ctx context.Context, accountID, assetCode string) error {
	acct, err := c.client.AccountDetail(horizonclient.AccountRequest{
		AccountID: accountID,
	})
	if err != nil {
		return errors.NewCoreError(
			errors.ACCOUNT_NOT_FOUND,
			fmt.Sprintf("recipient account %s not found on the network", accountID),
			err,
		)
	}

	if assetCode == "" || assetCode == "native" || assetCode == "XLM" {
		return nil
	}

	for _, balance := range acct.Balances {
		if balance.Asset.Code == assetCode {
			return nil
		}
	}

	return errors.NewCoreError(
		errors.TRUSTLINE_MISSING,
		fmt.Sprintf("recipient %s has no trustline for %s", accountID, assetCode),
		nil,
	)
}

// Compile-time interface check
var _ payd.AccountChecker = (*HorizonAccountChecker)(nil)
