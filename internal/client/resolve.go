package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// fallbackDNS is raced when the system resolver cannot find the relay.
var fallbackDNS = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"[2606:4700:4700::1111]",
	"[2001:4860:4860::8888]",
}

var errNoAddress = errors.New("no addresses found")

const (
	localLookupTimeout  = time.Second
	remoteLookupTimeout = 2 * time.Second
)

// dialContext resolves the relay host with resolveHost and dials the result.
func dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := resolveHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// resolveHost tries the system resolver first, then races the public ones.
// IP literals are returned as is.
func resolveHost(ctx context.Context, host string) (string, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String(), nil
	}

	local, cancel := context.WithTimeout(ctx, localLookupTimeout)
	ip, err := lookup(local, net.DefaultResolver, host)
	cancel()
	if err == nil {
		return ip, nil
	}
	return raceLookup(ctx, host, fallbackDNS)
}

func raceLookup(ctx context.Context, host string, servers []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteLookupTimeout)
	defer cancel()

	type result struct {
		ip  string
		err error
	}
	results := make(chan result, len(servers))
	for _, server := range servers {
		go func() {
			ip, err := lookup(ctx, resolverFor(server), host)
			results <- result{ip: ip, err: err}
		}()
	}

	var errs []error
	for range servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			errs = append(errs, res.err)
		case <-ctx.Done():
			return "", fmt.Errorf("public dns race for %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolve %s: %w", host, errors.Join(errs...))
}

// resolverFor sends every query to server on port 53.
func resolverFor(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

// lookup returns the first IPv4 address, or the first address of any kind.
func lookup(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errNoAddress
	}
	for _, ip := range ips {
		if addr, err := netip.ParseAddr(ip); err == nil && addr.Is4() {
			return ip, nil
		}
	}
	return ips[0], nil
}
