package checker

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/namelens/domainsearch/internal/core"
)

type fakeResolver struct {
	ips   []net.IP
	err   error
	ns    []*net.NS
	nsErr error
	block bool
	seen  []string
}

func (f *fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	f.seen = append(f.seen, network+":"+host)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.ips, f.err
}

func (f *fakeResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	f.seen = append(f.seen, "ns:"+name)
	return f.ns, f.nsErr
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func ips(values ...string) []net.IP {
	out := make([]net.IP, 0, len(values))
	for _, v := range values {
		out = append(out, net.ParseIP(v))
	}
	return out
}

func TestAvailabilityNotFoundIsAvailable(t *testing.T) {
	resolver := &fakeResolver{err: notFound("tapr.io"), nsErr: notFound("tapr.io")}
	a := &AvailabilityResolver{Resolver: resolver}

	result := a.Resolve(context.Background(), "Tapr.IO")
	require.True(t, result.Available)
	require.Equal(t, core.OutcomeNotFound, result.Outcome)
	require.Equal(t, MessageNotFound, result.Message)
	require.Equal(t, "tapr.io", result.Domain)
	require.Equal(t, "io", result.TLD)
	require.Equal(t, []string{"ip4:tapr.io", "ns:tapr.io"}, resolver.seen)
}

func TestAvailabilityNoDataIsTaken(t *testing.T) {
	resolver := &fakeResolver{
		err: notFound("mailonly.com"),
		ns:  []*net.NS{{Host: "ns1.example.net."}},
	}
	a := &AvailabilityResolver{Resolver: resolver}

	result := a.Resolve(context.Background(), "mailonly.com")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeNoData, result.Outcome)
	require.Equal(t, MessageNoData, result.Message)
	require.Equal(t, []string{"ip4:mailonly.com", "ns:mailonly.com"}, resolver.seen)
}

func TestAvailabilityFailedConfirmationIsTaken(t *testing.T) {
	a := &AvailabilityResolver{Resolver: &fakeResolver{
		err:   notFound("tapr.dev"),
		nsErr: &net.DNSError{Err: "server misbehaving", Name: "tapr.dev", IsTemporary: true},
	}}

	result := a.Resolve(context.Background(), "tapr.dev")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeError, result.Outcome)
}

func TestAvailabilityRealAddressIsTaken(t *testing.T) {
	a := &AvailabilityResolver{Resolver: &fakeResolver{ips: ips("93.184.216.34")}}

	result := a.Resolve(context.Background(), "example.com")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeResolved, result.Outcome)
	require.Equal(t, []string{"93.184.216.34"}, result.Addresses)
	require.Equal(t, dnsSource, result.Provenance.Source)
	require.NotEmpty(t, result.Provenance.CheckID)
}

func TestAvailabilityMixedParkingAndRealIsTaken(t *testing.T) {
	a := &AvailabilityResolver{Resolver: &fakeResolver{ips: ips("0.0.0.0", "93.184.216.34")}}

	result := a.Resolve(context.Background(), "qwzxkvbn.com")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeResolved, result.Outcome)
}

func TestAvailabilityParkedRandomNameIsAvailable(t *testing.T) {
	a := &AvailabilityResolver{Resolver: &fakeResolver{ips: ips("143.244.220.150")}}

	result := a.Resolve(context.Background(), "qwzxkvbn.com")
	require.True(t, result.Available)
	require.Equal(t, core.OutcomeParked, result.Outcome)
	require.Equal(t, MessageParked, result.Message)
}

func TestAvailabilityParkedBrandIsTaken(t *testing.T) {
	for _, domain := range []string{"tapr.com", "my-brand99.com", "ab.io"} {
		a := &AvailabilityResolver{Resolver: &fakeResolver{ips: ips("127.0.0.1")}}
		result := a.Resolve(context.Background(), domain)
		require.False(t, result.Available, domain)
		require.Equal(t, core.OutcomeParkedBrand, result.Outcome, domain)
	}
}

func TestAvailabilityCustomDenylistAndRun(t *testing.T) {
	a := &AvailabilityResolver{
		Resolver:     &fakeResolver{ips: ips("10.0.0.1")},
		Denylist:     []string{"10.0.0.1"},
		MinRandomRun: 4,
	}

	result := a.Resolve(context.Background(), "tapr.com")
	require.True(t, result.Available)
	require.Equal(t, core.OutcomeParked, result.Outcome)
}

func TestAvailabilityTimeoutIsTaken(t *testing.T) {
	a := &AvailabilityResolver{
		Resolver: &fakeResolver{block: true},
		Timeout:  10 * time.Millisecond,
	}

	result := a.Resolve(context.Background(), "slow.dev")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeTimeout, result.Outcome)
	require.Equal(t, MessageTimeout, result.Message)
}

func TestAvailabilityOtherErrorIsTaken(t *testing.T) {
	a := &AvailabilityResolver{
		Resolver: &fakeResolver{err: &net.DNSError{Err: "server misbehaving", Name: "broken.xyz", IsTemporary: true}},
	}

	result := a.Resolve(context.Background(), "broken.xyz")
	require.False(t, result.Available)
	require.Equal(t, core.OutcomeError, result.Outcome)
	require.Equal(t, MessageLookupFailure, result.Message)

	a.Resolver = &fakeResolver{err: errors.New("boom")}
	result = a.Resolve(context.Background(), "broken.xyz")
	require.Equal(t, core.OutcomeError, result.Outcome)
}

func TestLooksRandom(t *testing.T) {
	require.True(t, LooksRandom("qwzxkvbn", 6))
	require.True(t, LooksRandom("abcdef", 6))
	require.False(t, LooksRandom("abcde", 6))
	require.False(t, LooksRandom("abcdef1", 6))
	require.False(t, LooksRandom("abc-defgh", 6))
	require.False(t, LooksRandom("abcd", 0))
}

func TestNewResolverDefaults(t *testing.T) {
	require.Same(t, net.DefaultResolver, NewResolver("", time.Second))

	custom := NewResolver("8.8.8.8", time.Second)
	require.NotSame(t, net.DefaultResolver, custom)
	require.True(t, custom.PreferGo)
	require.NotNil(t, custom.Dial)
}

func TestAvailabilitySeparatesNXDomainFromNoData(t *testing.T) {
	addr := startDNSServer(t, "mailonly.com")
	a := &AvailabilityResolver{Resolver: NewResolver(addr, 2*time.Second), Nameserver: addr}

	taken := a.Resolve(context.Background(), "mailonly.com")
	require.False(t, taken.Available)
	require.Equal(t, core.OutcomeNoData, taken.Outcome)

	free := a.Resolve(context.Background(), "qzxvbnml.com")
	require.True(t, free.Available)
	require.Equal(t, core.OutcomeNotFound, free.Outcome)
}

// startDNSServer answers on loopback UDP. Names in registered exist with an
// NS record and no A record; every other name is NXDOMAIN.
func startDNSServer(t *testing.T, registered ...string) string {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listener refused: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	zones := make(map[string]bool, len(registered))
	for _, name := range registered {
		zones[name+"."] = true
	}

	go func() {
		buf := make([]byte, 1500)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if reply, err := dnsReply(buf[:n], zones); err == nil {
				_, _ = conn.WriteTo(reply, from)
			}
		}
	}()
	return conn.LocalAddr().String()
}

func dnsReply(query []byte, zones map[string]bool) ([]byte, error) {
	var p dnsmessage.Parser
	hdr, err := p.Start(query)
	if err != nil {
		return nil, err
	}
	q, err := p.Question()
	if err != nil {
		return nil, err
	}

	exists := zones[strings.ToLower(q.Name.String())]
	resp := dnsmessage.Header{
		ID:                 hdr.ID,
		Response:           true,
		Authoritative:      true,
		RecursionDesired:   hdr.RecursionDesired,
		RecursionAvailable: true,
	}
	if !exists {
		resp.RCode = dnsmessage.RCodeNameError
	}

	nameserver := dnsmessage.MustNewName("ns1.example.net.")
	rr := dnsmessage.ResourceHeader{Name: q.Name, Class: dnsmessage.ClassINET, TTL: 60}

	b := dnsmessage.NewBuilder(nil, resp)
	if err := b.StartQuestions(); err != nil {
		return nil, err
	}
	if err := b.Question(q); err != nil {
		return nil, err
	}
	if err := b.StartAnswers(); err != nil {
		return nil, err
	}
	if exists && q.Type == dnsmessage.TypeNS {
		if err := b.NSResource(rr, dnsmessage.NSResource{NS: nameserver}); err != nil {
			return nil, err
		}
	}
	if err := b.StartAuthorities(); err != nil {
		return nil, err
	}
	if err := b.SOAResource(rr, dnsmessage.SOAResource{
		NS:      nameserver,
		MBox:    dnsmessage.MustNewName("hostmaster.example.net."),
		Serial:  1,
		Refresh: 3600,
		Retry:   600,
		Expire:  86400,
		MinTTL:  60,
	}); err != nil {
		return nil, err
	}
	return b.Finish()
}
