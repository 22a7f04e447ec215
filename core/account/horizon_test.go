package account

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildado/payd-go/errors"
)

const accountID = "GBBD47UZQ4O5RITLHLDOFYM6ZX4M57GNIBSRAHKVKL2R7PZAVFH52H2L"

func accountServer(t *testing.T, exists bool, assetCodes ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			w.WriteHeader(404)
			fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
			return
		}

		balances := `{"balance":"100.0000000","asset_type":"native"}`
		for _, code := range assetCodes {
			balances += fmt.Sprintf(`,{"balance":"50.0000000","asset_type":"credit_alphanum4","asset_code":%q,"asset_issuer":"GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"}`, code)
		}
		fmt.Fprintf(w, `{"id":%q,"account_id":%q,"sequence":"1","balances":[%s]}`, accountID, accountID, balances)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckRecipientAccountNotFound(t *testing.T) {
	server := accountServer(t, false)
	checker := NewHorizonAccountChecker(server.URL)

	err := checker.CheckRecipient(context.Background(), accountID, "USDC")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ACCOUNT_NOT_FOUND))
}

func TestCheckRecipientNativeAssetNeedsNoTrustline(t *testing.T) {
	server := accountServer(t, true)
	checker := NewHorizonAccountChecker(server.URL)
	ctx := context.Background()

	assert.NoError(t, checker.CheckRecipient(ctx, accountID, ""))
	assert.NoError(t, checker.CheckRecipient(ctx, accountID, "native"))
	assert.NoError(t, checker.CheckRecipient(ctx, accountID, "XLM"))
}

func TestCheckRecipientWithTrustline(t *testing.T) {
	server := accountServer(t, true, "USDC")
	checker := NewHorizonAccountChecker(server.URL)

	assert.NoError(t, checker.CheckRecipient(context.Background(), accountID, "USDC"))
}

func TestCheckRecipientMissingTrustline(t *testing.T) {
	server := accountServer(t, true, "EURC")
	checker := NewHorizonAccountChecker(server.URL)

	err := checker.CheckRecipient(context.Background(), accountID, "USDC")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.TRUSTLINE_MISSING))
}
