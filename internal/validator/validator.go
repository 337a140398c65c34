// Package validator guards where a short link may redirect. A rejected URL
// is a normal outcome, never a crash: parse failures and hostile payloads
// all land in the same "invalid destination" bucket.
package validator

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// maxURLLength mirrors the storage bound; anything longer is rejected
// before it gets near the store.
const maxURLLength = 2083

// metadataHosts are cloud metadata endpoints that must never be a redirect
// destination.
var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
}

// suspiciousPorts are service ports a link shortener has no business
// redirecting to.
var suspiciousPorts = map[int]bool{
	22: true, 23: true, 25: true, 110: true, 143: true,
	993: true, 995: true, 3306: true, 3389: true, 5432: true,
}

var (
	internalHostPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^127\.`),
		regexp.MustCompile(`^localhost$`),
		regexp.MustCompile(`^10\.`),
		regexp.MustCompile(`^192\.168\.`),
		regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[01])\.`),
		regexp.MustCompile(`^169\.254\.`),
		regexp.MustCompile(`^::1$`),
		regexp.MustCompile(`^\[::1\]$`),
		regexp.MustCompile(`^0\.0\.0\.0`),
	}

	encodedCRLF = regexp.MustCompile(`(?i)%0[ad]`)

	// DNS-rebinding host shapes: hex-encoded IPs (7f000001.evil.com),
	// dashed IPs (127-0-0-1.evil.com), and localhost-as-subdomain.
	hexIPHost    = regexp.MustCompile(`^[0-9a-f]{8}\.`)
	dashedIPHost = regexp.MustCompile(`^\d{1,3}-\d{1,3}-\d{1,3}-\d{1,3}\.`)
	loopbackSub  = regexp.MustCompile(`^(127\.0\.0\.1|localhost)\.`)

	tldConfusion = regexp.MustCompile(`\.(com|org)\..+\.(com|org)`)
)

// Validator checks destination URLs against the protocol rules and an
// optional redirect-host allow-list.
type Validator struct {
	// allowedHosts, when non-empty, restricts destinations to these hosts
	// and their proper subdomains. Empty means no restriction.
	allowedHosts []string
}

// New creates a validator. Hosts are compared case-insensitively.
func New(allowedHosts []string) *Validator {
	normalized := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}

	return &Validator{allowedHosts: normalized}
}

// ValidDestination reports whether rawURL is a safe redirect destination:
// an absolute http/https URL without credentials or header-injection
// payloads, pointing at a permitted, non-internal host.
func (v *Validator) ValidDestination(rawURL string) bool {
	return v.CheckDestination(rawURL) == nil
}

// CheckDestination is ValidDestination with a reason, for logs. The reason
// names the failed rule only; it is never sent to clients.
func (v *Validator) CheckDestination(rawURL string) error {
	if rawURL == "" {
		return errors.New("blank url")
	}

	if len(rawURL) > maxURLLength {
		return fmt.Errorf("url exceeds %d characters", maxURLLength)
	}

	if strings.ContainsAny(rawURL, "\r\n\x00") || encodedCRLF.MatchString(rawURL) {
		return errors.New("control characters in url")
	}

	if decoded, err := url.QueryUnescape(rawURL); err == nil {
		if strings.ContainsAny(decoded, "\r\n\x00") {
			return errors.New("encoded control characters in url")
		}

		if strings.Contains(decoded, "../") {
			return errors.New("path traversal in url")
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("unparsable url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme %q", u.Scheme)
	}

	// Credentials in the authority component are an open-redirect staple
	// (https://trusted.com@evil.com).
	if u.User != nil {
		return errors.New("credentials in url")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("missing host")
	}

	if !v.hostAllowed(host) {
		return fmt.Errorf("host %q not on the allow list", host)
	}

	if subdomainConfusion(host) {
		return fmt.Errorf("suspicious host shape %q", host)
	}

	if internalHost(host) || metadataHosts[host] {
		return fmt.Errorf("internal host %q", host)
	}

	if rebindingHost(host) {
		return fmt.Errorf("dns-rebinding host shape %q", host)
	}

	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || suspiciousPorts[n] {
			return fmt.Errorf("disallowed port %s", port)
		}
	}

	return nil
}

// hostAllowed checks the allow-list: exact match or proper subdomain. An
// empty list allows every host.
func (v *Validator) hostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}

	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}

		// Proper subdomain only: "sub.example.com" matches "example.com",
		// but "example.com.evil.com" must not match via substring tricks.
		if strings.HasSuffix(host, "."+allowed) && !strings.Contains(host, "..") {
			return true
		}
	}

	return false
}

// subdomainConfusion rejects hosts shaped like trusted.com.evil.com where a
// trusted-looking name is embedded as a label prefix of an untrusted host.
func subdomainConfusion(host string) bool {
	if strings.Contains(host, "@") {
		return true
	}

	return tldConfusion.MatchString(host)
}

func internalHost(host string) bool {
	for _, pattern := range internalHostPatterns {
		if pattern.MatchString(host) {
			return true
		}
	}

	return false
}

func rebindingHost(host string) bool {
	return hexIPHost.MatchString(host) ||
		dashedIPHost.MatchString(host) ||
		loopbackSub.MatchString(host)
}
