package simulate

import (
	"fmt"
	"strings"
)

// knownResultCodes is the documented list of transaction-level and
// operation-level result codes the humanization table must cover. The table
// is checked against this list when a Simulator is constructed, so a missing
// translation is caught at startup rather than in an error path.
var knownResultCodes = []string{
	"tx_insufficient_balance",
	"tx_bad_seq",
	"tx_bad_auth",
	"tx_insufficient_fee",
	"tx_no_source_account",
	"tx_too_early",
	"tx_too_late",
	"tx_missing_operation",
	"tx_bad_auth_extra",
	"tx_internal_error",
	"op_underfunded",
	"op_src_not_authorized",
	"op_no_destination",
	"op_no_trust",
	"op_line_full",
	"op_no_issuer",
	"op_low_reserve",
}

// errorCodeMessages maps common Horizon/Stellar failure codes to
// human-readable messages. The mapping is immutable; unrecognized codes fall
// back to a generic template via humanizeErrorCode.
var errorCodeMessages = map[string]string{
	"tx_insufficient_balance": "Insufficient balance — your account does not have enough XLM to cover this transaction and its fees.",
	"tx_bad_seq":              "Invalid sequence number — your account's sequence number is out of sync. Please refresh and try again.",
	"tx_bad_auth":             "Authorization failed — the transaction signature is invalid or missing required signers.",
	"tx_insufficient_fee":     "Insufficient fee — the fee provided is below the network minimum. Consider increasing your fee.",
	"tx_no_source_account":    "Source account not found — the sending account does not exist on the network.",
	"tx_too_early":            "Transaction submitted too early — the transaction's time bounds have not started yet.",
	"tx_too_late":             "Transaction submitted too late — the transaction's time bounds have expired.",
	"tx_missing_operation":    "Missing operation — the transaction contains no operations to execute.",
	"tx_bad_auth_extra":       "Extra signatures — the transaction has unnecessary signatures attached.",
	"tx_internal_error":       "Internal error — an unexpected error occurred within the Stellar network.",
	"op_underfunded":          "Underfunded operation — the source account does not have enough balance to complete this payment.",
	"op_src_not_authorized":   "Source not authorized — the source account is not authorized to perform this operation.",
	"op_no_destination":       "Destination not found — the recipient account does not exist on the network. It may need to be created first.",
	"op_no_trust":             "Missing trustline — the destination account has not established a trustline for this asset.",
	"op_line_full":            "Trustline limit reached — the destination account's trustline limit for this asset has been exceeded.",
	"op_no_issuer":            "Asset issuer not found — the specified asset issuer does not exist on the network.",
	"op_low_reserve":          "Below minimum reserve — this operation would bring the account below the minimum reserve balance.",
}

// humanizeErrorCode translates a raw result code into a human-readable
// message, falling back to a generic template for unrecognized codes.
func humanizeErrorCode(code string) string {
	if msg, ok := errorCodeMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Transaction failed with code: %s. Please review your transaction parameters.", code)
}

// matchKnownCode returns the first known result code that appears as a
// substring of the given message (case-insensitive), or "" if none match.
// Used to pull structured codes out of free-text RPC simulation errors.
func matchKnownCode(message string) string {
	lowered := strings.ToLower(message)
	for _, code := range knownResultCodes {
		if strings.Contains(lowered, code) {
			return code
		}
	}
	return ""
}

// validateCodeTable verifies the humanization table covers every documented
// result code.
func validateCodeTable() error {
	for _, code := range knownResultCodes {
		if _, ok := errorCodeMessages[code]; !ok {
			return fmt.Errorf("error code table missing translation for %q", code)
		}
	}
	return nil
}
