package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// PublicDNS are servers queried when the system resolver fails.
var PublicDNS = []string{
	"1.1.1.1",         // Cloudflare
	"1.0.0.1",         // Cloudflare
	"8.8.8.8",         // Google
	"8.8.4.4",         // Google
	"9.9.9.9",         // Quad9
	"149.112.112.112", // Quad9
	"208.67.222.222",  // Cisco OpenDNS
	"208.67.220.220",  // Cisco OpenDNS
}

// HostLookup resolves a hostname to its addresses.
type HostLookup func(ctx context.Context, host string) ([]string, error)

// Resolver looks a host up with the system resolver first and falls back to
// racing public DNS servers.
type Resolver struct {
	Local    HostLookup
	Fallback []HostLookup

	LocalTimeout    time.Duration
	FallbackTimeout time.Duration
}

// NewResolver returns a Resolver using the system resolver and PublicDNS.
func NewResolver() *Resolver {
	r := &Resolver{
		Local:           (&net.Resolver{}).LookupHost,
		LocalTimeout:    time.Second,
		FallbackTimeout: 2 * time.Second,
	}
	for _, server := range PublicDNS {
		r.Fallback = append(r.Fallback, serverLookup(server))
	}
	return r
}

// Lookup resolves host to a single IP, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	if r.Local != nil {
		lctx, cancel := context.WithTimeout(ctx, orDefault(r.LocalTimeout, time.Second))
		ips, err := r.Local(lctx, host)
		cancel()
		if err == nil {
			if ip, err := pickIP(ips); err == nil {
				return ip, nil
			}
		}
	}

	return r.race(ctx, host)
}

// race returns the first successful answer from the fallback lookups.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.Fallback) == 0 {
		return "", fmt.Errorf("failed to resolve %s", host)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, orDefault(r.FallbackTimeout, 2*time.Second))
	defer cancel()

	results := make(chan result, len(r.Fallback))
	for _, lookup := range r.Fallback {
		go func(lookup HostLookup) {
			ips, err := lookup(ctx, host)
			if err != nil {
				results <- result{err: err}
				return
			}
			ip, err := pickIP(ips)
			results <- result{ip: ip, err: err}
		}(lookup)
	}

	failures := 0
	for range r.Fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("dns lookup for %s timed out", host)
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, failures)
}

func serverLookup(server string) HostLookup {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return r.LookupHost
}

func pickIP(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
