package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// PingConfig is the opaque monitor config for ICMP echo checks.
type PingConfig struct {
	Name string `json:"name,omitempty"`
	Host string `json:"host"`
}

// PingChecker sends an ICMP echo request. It prefers a raw socket and falls
// back to an unprivileged UDP socket where raw ICMP is not permitted.
type PingChecker struct{}

func (c *PingChecker) Type() string { return "ping" }

func (c *PingChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg PingConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.Host == "" {
		return down("no host configured", 0, nil), nil
	}

	timeout := timeoutFrom(ctx, 10*time.Second)
	start := time.Now()

	dst, isIPv6 := resolvePingTarget(ctx, cfg.Host)
	if dst == nil {
		return down("DNS resolution failed: no IPv4 or IPv6 address found",
			time.Since(start), map[string]any{"host": cfg.Host}), nil
	}

	conn, err := listenICMP(isIPv6)
	if err != nil {
		return down(fmt.Sprintf("ICMP listen failed: %v", err), time.Since(start),
			map[string]any{"host": cfg.Host}), nil
	}
	defer conn.Close()

	if err := sendEchoRequest(conn, dst, isIPv6); err != nil {
		return down(fmt.Sprintf("send failed: %v", err), time.Since(start),
			map[string]any{"host": cfg.Host}), nil
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	rb := make([]byte, 1500)
	if _, _, err := conn.ReadFrom(rb); err != nil {
		return down(fmt.Sprintf("no echo reply: %v", err), time.Since(start),
			map[string]any{"host": cfg.Host, "ip": dst.String()}), nil
	}
	elapsed := time.Since(start)

	return &Result{
		Status:         status.Operational,
		ResponseTimeMS: millis(elapsed),
		Message:        fmt.Sprintf("reply from %s", dst),
		Metadata: map[string]any{
			"host":             cfg.Host,
			"ip":               dst.String(),
			"response_time_ms": elapsed.Milliseconds(),
		},
	}, nil
}

func resolvePingTarget(ctx context.Context, host string) (net.IP, bool) {
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", host); err == nil && len(addrs) > 0 {
		return addrs[0], false
	}
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip6", host); err == nil && len(addrs) > 0 {
		return addrs[0], true
	}
	return nil, false
}

func listenICMP(isIPv6 bool) (*icmp.PacketConn, error) {
	if isIPv6 {
		conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
		if err != nil {
			conn, err = icmp.ListenPacket("udp6", "::")
		}
		return conn, err
	}
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	}
	return conn, err
}

func sendEchoRequest(conn *icmp.PacketConn, dst net.IP, isIPv6 bool) error {
	var msgType icmp.Type
	if isIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	} else {
		msgType = ipv4.ICMPTypeEcho
	}

	msg := icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("simplewatch-ping"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	var dstAddr net.Addr
	switch conn.LocalAddr().Network() {
	case "udp4", "udp6":
		dstAddr = &net.UDPAddr{IP: dst}
	default:
		dstAddr = &net.IPAddr{IP: dst}
	}
	_, err = conn.WriteTo(wb, dstAddr)
	return err
}
