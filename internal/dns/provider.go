package dns

import "context"

// Zone is a provider's management unit for a registered domain.
type Zone struct {
	ID   string
	Name string
}

// Record represents a DNS record to be created.
type Record struct {
	Hostname string // FQDN or wildcard, e.g. "*.example.com"
	Type     string // "A", "AAAA", "CNAME"
	Value    string // IP address or target
	TTL      int    // 1 = automatic
	Proxied  bool
}

// Provider is the interface that DNS providers must implement. Credentials
// are supplied per call because every chat user brings their own token.
type Provider interface {
	ListZones(ctx context.Context, apiToken string) ([]Zone, error)
	CreateRecord(ctx context.Context, apiToken, zoneID string, record Record) (string, error)
}
