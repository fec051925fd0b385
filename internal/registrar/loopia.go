package registrar

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kolo/xmlrpc"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
)

const (
	// DefaultLoopiaEndpoint is the Loopia XML-RPC service.
	DefaultLoopiaEndpoint = "https://api.loopia.se/RPCSERV"

	loopiaFree = "OK"
)

// LoopiaQuoter checks availability with the domainIsFree XML-RPC call.
// Loopia reports no price, so free domains are priced from the table.
type LoopiaQuoter struct {
	Config config.LoopiaConfig
	Table  *PriceTable

	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

func (q *LoopiaQuoter) Name() string { return Loopia }

func (q *LoopiaQuoter) Quote(ctx context.Context, domain string) (core.PriceQuote, error) {
	if q.Config.Username == "" || q.Config.Password == "" {
		return core.PriceQuote{}, ErrNotConfigured
	}

	endpoint := strings.TrimSpace(q.Config.Endpoint)
	if endpoint == "" {
		endpoint = DefaultLoopiaEndpoint
	}

	client, err := xmlrpc.NewClient(endpoint, q.Transport)
	if err != nil {
		return core.PriceQuote{}, fmt.Errorf("loopia client: %w", err)
	}
	defer client.Close() // nolint:errcheck // best-effort cleanup

	// xmlrpc has no context support; run the call aside and honour ctx.
	type reply struct {
		value string
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		var result string
		err := client.Call("domainIsFree", []interface{}{q.Config.Username, q.Config.Password, domain}, &result)
		done <- reply{value: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return core.PriceQuote{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return core.PriceQuote{}, fmt.Errorf("loopia domainIsFree: %w", r.err)
		}
		if r.value != loopiaFree {
			return core.PriceQuote{Initial: "$0", Renewal: "$0", Available: false}, nil
		}
	}

	price := TLDPrice{Initial: "N/A", Renewal: "N/A"}
	if q.Table != nil {
		if stored, ok := q.Table.Get(Loopia, core.TLDOf(domain)); ok {
			price = stored
		}
	}
	return core.PriceQuote{Initial: price.Initial, Renewal: price.Renewal, Available: true}, nil
}
