package dns

// WildcardName returns the wildcard record name covering every subdomain
// of domain. The domain is used as given.
// e.g. "example.com" → "*.example.com"
// e.g. "example.com." → "*.example.com."
func WildcardName(domain string) string {
	return "*." + domain
}
