package httputil

import (
	"context"
	"fmt"
	"net"
	"net/http"
)

// lookupFunc resolves a host for redirect validation.
type lookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

var blockedClasses = []struct {
	name    string
	matches func(net.IP) bool
}{
	{"private", net.IP.IsPrivate},
	{"loopback", net.IP.IsLoopback},
	{"link-local", net.IP.IsLinkLocalUnicast},
	{"link-local multicast", net.IP.IsLinkLocalMulticast},
	{"multicast", net.IP.IsMulticast},
	{"unspecified", net.IP.IsUnspecified},
}

// ValidateIP rejects addresses a download redirect may not reach. host is
// included in the error.
func ValidateIP(ip net.IP, host string) error {
	for _, c := range blockedClasses {
		if c.matches(ip) {
			return fmt.Errorf("refusing redirect to %s address: %s (%s)", c.name, host, ip)
		}
	}
	return nil
}

func redirectChecker(max int, lookup lookupFunc) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}
		if len(via) >= max {
			return fmt.Errorf("too many redirects (limit %d)", max)
		}

		host := req.URL.Hostname()
		if ip := net.ParseIP(host); ip != nil {
			return ValidateIP(ip, host)
		}

		// Every resolved address is checked so a rebinding host cannot
		// slip one private address past the check.
		addrs, err := lookup(req.Context(), host)
		if err != nil {
			return fmt.Errorf("resolve redirect host %s: %w", host, err)
		}
		for _, a := range addrs {
			if err := ValidateIP(a.IP, host); err != nil {
				return err
			}
		}
		return nil
	}
}
