package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/errors"
)

const fullToml = `# anchor configuration
NETWORK_PASSPHRASE = "Test SDF Network ; September 2015"
SIGNING_KEY = "GBBD47UZQ4O5RITLHLDOFYM6ZX4M57GNIBSRAHKVKL2R7PZAVFH52H2L"
WEB_AUTH_ENDPOINT = "https://anchor.example.com/auth"
TRANSFER_SERVER_SEP0031 = "https://anchor.example.com/sep31"

[[CURRENCIES]]
code = "USDC"
issuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
status = "live"
display_decimals = 2

[[CURRENCIES]]
code = "EURC"
issuer = "GDHU6WRG4IEQXM5NZ4BMPKOXHW76MZM4Y2IEMFDVXBSDP6SJY4ITNPP2"
status = "live"
`

func tomlServer(t *testing.T, body string, fetches *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/stellar.toml", r.URL.Path)
		if fetches != nil {
			atomic.AddInt32(fetches, 1)
		}
		fmt.Fprint(w, body)
	}))
}

func TestResolveExtractsEndpoints(t *testing.T) {
	server := tomlServer(t, fullToml, nil)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	info, err := resolver.Resolve(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test SDF Network ; September 2015", info.NetworkPassphrase)
	assert.Equal(t, "GBBD47UZQ4O5RITLHLDOFYM6ZX4M57GNIBSRAHKVKL2R7PZAVFH52H2L", info.SigningKey)
	assert.Equal(t, "https://anchor.example.com/auth", info.WebAuthEndpoint)
	assert.Equal(t, "https://anchor.example.com/sep31", info.SettlementEndpoint)

	require.Len(t, info.Currencies, 2)
	assert.Equal(t, "USDC", info.Currencies[0].Code)
	assert.Equal(t, 2, info.Currencies[0].DisplayDecimals)
	assert.Equal(t, "EURC", info.Currencies[1].Code)
}

func TestResolveCachesSecondCall(t *testing.T) {
	var fetches int32
	server := tomlServer(t, fullToml, &fetches)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestResolveConcurrentFirstResolutionFetchesOnce(t *testing.T) {
	var fetches int32
	server := tomlServer(t, fullToml, &fetches)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	const resolvers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			info, err := resolver.Resolve(ctx, server.URL)
			assert.NoError(t, err)
			assert.Equal(t, "https://anchor.example.com/auth", info.WebAuthEndpoint)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestResolvePartialDocumentCached(t *testing.T) {
	var fetches int32
	server := tomlServer(t, `WEB_AUTH_ENDPOINT = "https://anchor.example.com/auth"`, &fetches)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	info, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://anchor.example.com/auth", info.WebAuthEndpoint)
	assert.Empty(t, info.SettlementEndpoint)

	// A document without a settlement endpoint is still a successful
	// resolution and is cached as such.
	_, err = resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestResolveFailureNotCached(t *testing.T) {
	var fetches int32
	var failing int32 = 1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		if atomic.LoadInt32(&failing) == 1 {
			w.WriteHeader(404)
			return
		}
		fmt.Fprint(w, fullToml)
	}))
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.DISCOVERY_FAILED))

	atomic.StoreInt32(&failing, 0)

	info, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, info.WebAuthEndpoint)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestResolveRejectsInvalidSigningKey(t *testing.T) {
	server := tomlServer(t, `SIGNING_KEY = "SBADSECRETKEYINSTEADOFPUBLIC"`, nil)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	_, err := resolver.Resolve(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.DISCOVERY_INVALID))
}

func TestSetAndInvalidateToken(t *testing.T) {
	server := tomlServer(t, fullToml, nil)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)

	resolver.SetToken(server.URL, "tok-123")
	info, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", info.Token)
	assert.False(t, info.TokenObtainedAt.IsZero())

	resolver.InvalidateToken(server.URL)
	info, err = resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.Empty(t, info.Token)
	assert.Equal(t, "https://anchor.example.com/auth", info.WebAuthEndpoint)
}

func TestInvalidateDropsEntry(t *testing.T) {
	var fetches int32
	server := tomlServer(t, fullToml, &fetches)
	defer server.Close()

	resolver := NewResolver(net.NewClient())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)

	resolver.Invalidate(server.URL)

	_, err = resolver.Resolve(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}
