package checker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// SSLCertConfig is the opaque monitor config for certificate expiry checks.
type SSLCertConfig struct {
	Name         string `json:"name,omitempty"`
	Host         string `json:"host"`
	Port         int    `json:"port,omitempty"` // defaults to 443
	WarnDays     int    `json:"warn_days,omitempty"`
	CriticalDays int    `json:"critical_days,omitempty"`
}

// SSLCertChecker performs a TLS handshake and grades the certificate by days
// until expiry: operational above warn_days, degraded above critical_days,
// down at or below critical_days or already expired.
type SSLCertChecker struct{}

func (c *SSLCertChecker) Type() string { return "ssl_cert" }

func (c *SSLCertChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg SSLCertConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.Host == "" {
		return down("no host configured", 0, nil), nil
	}

	port := cfg.Port
	if port == 0 {
		port = 443
	}
	warnDays := cfg.WarnDays
	if warnDays <= 0 {
		warnDays = 30
	}
	criticalDays := cfg.CriticalDays
	if criticalDays <= 0 {
		criticalDays = 7
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{Timeout: timeoutFrom(ctx, 10*time.Second)}

	start := time.Now()
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return down(fmt.Sprintf("connection failed: %v", err), time.Since(start),
			map[string]any{"host": cfg.Host}), nil
	}

	tlsConn := tls.Client(rawConn, &tls.Config{ServerName: cfg.Host})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return down(fmt.Sprintf("TLS handshake failed: %v", err), time.Since(start),
			map[string]any{"host": cfg.Host}), nil
	}
	defer tlsConn.Close()
	elapsed := time.Since(start)

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return down("no certificates presented", elapsed, map[string]any{"host": cfg.Host}), nil
	}

	cert := state.PeerCertificates[0]
	expiry := cert.NotAfter
	daysUntilExpiry := int(time.Until(expiry).Hours() / 24)

	meta := map[string]any{
		"host":              cfg.Host,
		"expires_at":        expiry.UTC().Format(time.RFC3339),
		"days_until_expiry": daysUntilExpiry,
		"issuer":            cert.Issuer.CommonName,
	}

	result := &Result{
		Status:         status.Operational,
		ResponseTimeMS: millis(elapsed),
		Message:        fmt.Sprintf("cert expires in %d days (%s)", daysUntilExpiry, expiry.Format("2006-01-02")),
		Metadata:       meta,
	}

	switch {
	case daysUntilExpiry <= 0:
		result.Status = status.Down
		result.Message = fmt.Sprintf("certificate expired on %s", expiry.Format("2006-01-02"))
		meta["error"] = result.Message
	case daysUntilExpiry <= criticalDays:
		result.Status = status.Down
		result.Message = fmt.Sprintf("certificate expires in %d days", daysUntilExpiry)
		meta["error"] = result.Message
	case daysUntilExpiry <= warnDays:
		result.Status = status.Degraded
		result.Message = fmt.Sprintf("certificate expires in %d days", daysUntilExpiry)
		meta["error"] = result.Message
	}

	return result, nil
}
