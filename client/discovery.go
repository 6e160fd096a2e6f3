package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// srvScheme marks a node pseudo-URL that expands through a DNS SRV
// lookup: "srv+_ledger._tcp.example.org" resolves the SRV records of the
// domain and turns every target into a concrete endpoint URL. Plain URLs
// pass through untouched.
const srvScheme = "srv+"

// Discovery expands node pseudo-URLs from network profiles into dialable
// endpoint URLs.
type Discovery struct {
	client *dns.Client
	server string

	// EndpointScheme is the URL scheme endpoints are built with, "http"
	// by default.
	EndpointScheme string
}

// NewDiscovery creates a resolver against the given DNS server
// ("host:53"). An empty server uses the system resolver configuration.
func NewDiscovery(server string) (*Discovery, error) {
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("loading resolver configuration: %w", err)
		}
		if len(conf.Servers) == 0 {
			return nil, fmt.Errorf("no DNS servers configured")
		}
		server = conf.Servers[0] + ":" + conf.Port
	}
	return &Discovery{
		client:         &dns.Client{Timeout: 5 * time.Second},
		server:         server,
		EndpointScheme: "http",
	}, nil
}

// Expand resolves every srv+ pseudo-URL in nodes, keeping plain URLs as
// they are. The result preserves input order, with SRV targets sorted by
// priority then weight.
func (d *Discovery) Expand(ctx context.Context, nodes []string) ([]string, error) {
	expanded := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if !strings.HasPrefix(node, srvScheme) {
			expanded = append(expanded, node)
			continue
		}
		endpoints, err := d.lookupSRV(ctx, strings.TrimPrefix(node, srvScheme))
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", node, err)
		}
		expanded = append(expanded, endpoints...)
	}
	return expanded, nil
}

func (d *Discovery) lookupSRV(ctx context.Context, domain string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeSRV)

	reply, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup: %w", err)
	}
	if reply.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV lookup: %s", dns.RcodeToString[reply.Rcode])
	}

	var records []*dns.SRV
	for _, answer := range reply.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no SRV records for %q", domain)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})

	endpoints := make([]string, 0, len(records))
	for _, srv := range records {
		endpoints = append(endpoints,
			fmt.Sprintf("%s://%s:%d", d.EndpointScheme, strings.TrimSuffix(srv.Target, "."), srv.Port))
	}
	return endpoints, nil
}

// IsSRVNode reports whether a node entry is an SRV pseudo-URL that needs
// expansion.
func IsSRVNode(node string) bool {
	return strings.HasPrefix(node, srvScheme)
}
