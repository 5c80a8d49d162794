// Package dns answers whether an email domain can receive mail.
package dns

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
)

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

type MXChecker struct {
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

func NewMXChecker(resolver Resolver, timeout time.Duration, logger *slog.Logger) *MXChecker {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &MXChecker{
		resolver: resolver,
		timeout:  timeout,
		logger:   logger.With("component", "mx_checker"),
	}
}

// HasMX reports whether domain publishes at least one MX record. Records
// returned alongside an error still count. Errors and timeouts with no
// records count as no record.
func (c *MXChecker) HasMX(ctx context.Context, domain string) bool {
	if domain == "" {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	records, err := c.resolver.LookupMX(lookupCtx, domain)
	found := len(records) > 0
	if err != nil {
		c.logger.DebugContext(ctx, "mx lookup failed", "domain", domain, "records", len(records), "error", err)
	}

	result := "none"
	switch {
	case found:
		result = "found"
	case err != nil:
		result = "error"
	}
	metrics.MXLookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	return found
}

// EmailDomain returns the part of addr after its last "@", or "" if there is none.
func EmailDomain(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return addr[i+1:]
}
