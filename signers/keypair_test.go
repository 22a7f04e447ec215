package signers

import (
	"context"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSecretRejectsInvalidKey(t *testing.T) {
	_, err := FromSecret("not-a-secret-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid secret key")
}

func TestFromSecretPublicKey(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)

	signer, err := FromSecret(kp.Seed())
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), signer.PublicKey())
}

func TestKeypairSignerSignsEnvelope(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)
	dest := keypair.MustRandom()

	source := txnbuild.NewSimpleAccount(kp.Address(), 1)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &source,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: dest.Address(),
				Amount:      "10",
				Asset:       txnbuild.NativeAsset{},
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
	})
	require.NoError(t, err)

	unsigned, err := tx.Base64()
	require.NoError(t, err)

	signer, err := FromSecret(kp.Seed())
	require.NoError(t, err)

	signed, err := signer.SignTransaction(context.Background(), unsigned, network.TestNetworkPassphrase)
	require.NoError(t, err)
	assert.NotEqual(t, unsigned, signed)

	parsed, err := txnbuild.TransactionFromXDR(signed)
	require.NoError(t, err)
	signedTx, ok := parsed.Transaction()
	require.True(t, ok)
	require.Len(t, signedTx.Signatures(), 1)

	hash, err := signedTx.Hash(network.TestNetworkPassphrase)
	require.NoError(t, err)
	assert.NoError(t, kp.Verify(hash[:], signedTx.Signatures()[0].Signature))
}

func TestKeypairSignerRejectsMalformedXDR(t *testing.T) {
	signer, err := FromSecret(keypair.MustRandom().Seed())
	require.NoError(t, err)

	_, err = signer.SignTransaction(context.Background(), "definitely-not-xdr", network.TestNetworkPassphrase)
	require.Error(t, err)
}

func TestCallbackSigner(t *testing.T) {
	var gotXDR, gotPassphrase string
	signer := FromCallback("GCALLBACK", func(ctx context.Context, xdr, passphrase string) (string, error) {
		gotXDR = xdr
		gotPassphrase = passphrase
		return "signed-" + xdr, nil
	})

	assert.Equal(t, "GCALLBACK", signer.PublicKey())

	signed, err := signer.SignTransaction(context.Background(), "envelope", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "signed-envelope", signed)
	assert.Equal(t, "envelope", gotXDR)
	assert.Equal(t, "passphrase", gotPassphrase)
}
