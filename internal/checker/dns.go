package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// DNSConfig is the opaque monitor config for DNS resolution checks.
type DNSConfig struct {
	Name       string `json:"name,omitempty"`
	Hostname   string `json:"hostname"`
	RecordType string `json:"record_type,omitempty"` // A, AAAA, CNAME, MX, TXT, NS
	Expected   string `json:"expected,omitempty"`
	Server     string `json:"server,omitempty"`
}

// DNSChecker resolves a record and optionally matches an expected value.
type DNSChecker struct{}

func (c *DNSChecker) Type() string { return "dns" }

func (c *DNSChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg DNSConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.Hostname == "" {
		return down("no hostname configured", 0, nil), nil
	}

	recordType := cfg.RecordType
	if recordType == "" {
		recordType = "A"
	}

	resolver := net.DefaultResolver
	if cfg.Server != "" {
		timeout := timeoutFrom(ctx, 10*time.Second)
		resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: timeout}
				return d.DialContext(ctx, "udp", net.JoinHostPort(cfg.Server, "53"))
			},
		}
	}

	start := time.Now()
	records, err := lookupRecords(ctx, resolver, recordType, cfg.Hostname)
	elapsed := time.Since(start)

	meta := map[string]any{
		"hostname":         cfg.Hostname,
		"record_type":      recordType,
		"response_time_ms": elapsed.Milliseconds(),
	}

	if err != nil {
		return down(fmt.Sprintf("DNS lookup failed: %v", err), elapsed, meta), nil
	}
	if len(records) == 0 {
		return down("no records found", elapsed, meta), nil
	}

	meta["records"] = records

	if cfg.Expected != "" {
		found := false
		for _, r := range records {
			if strings.Contains(r, cfg.Expected) {
				found = true
				break
			}
		}
		if !found {
			meta["error"] = fmt.Sprintf("expected value %q not in records", cfg.Expected)
			return &Result{
				Status:         status.Down,
				ResponseTimeMS: millis(elapsed),
				Message:        fmt.Sprintf("expected value %q not found", cfg.Expected),
				Metadata:       meta,
			}, nil
		}
	}

	return &Result{
		Status:         status.Operational,
		ResponseTimeMS: millis(elapsed),
		Message:        fmt.Sprintf("%d %s record(s)", len(records), recordType),
		Metadata:       meta,
	}, nil
}

func lookupRecords(ctx context.Context, resolver *net.Resolver, recordType, hostname string) ([]string, error) {
	var records []string
	switch recordType {
	case "A":
		addrs, err := resolver.LookupIP(ctx, "ip4", hostname)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			records = append(records, a.String())
		}
	case "AAAA":
		addrs, err := resolver.LookupIP(ctx, "ip6", hostname)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			records = append(records, a.String())
		}
	case "CNAME":
		cname, err := resolver.LookupCNAME(ctx, hostname)
		if err != nil {
			return nil, err
		}
		if cname != "" {
			records = append(records, cname)
		}
	case "MX":
		mxs, err := resolver.LookupMX(ctx, hostname)
		if err != nil {
			return nil, err
		}
		for _, mx := range mxs {
			records = append(records, fmt.Sprintf("%d %s", mx.Pref, mx.Host))
		}
	case "TXT":
		return resolver.LookupTXT(ctx, hostname)
	case "NS":
		nss, err := resolver.LookupNS(ctx, hostname)
		if err != nil {
			return nil, err
		}
		for _, ns := range nss {
			records = append(records, ns.Host)
		}
	default:
		return nil, fmt.Errorf("unsupported record type: %s", recordType)
	}
	return records, nil
}
