// Command healthcheck probes the local mashtalsms instance for container
// health checks. It exits 0 when /api/v1/health reports ok and, when
// MASHTAL_HEALTHCHECK_REQUIRE_GATEWAY is "true", a configured gateway account.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	probeTimeout = 2 * time.Second
	maxBodyBytes = 4 << 10
)

func main() {
	requireGateway := strings.EqualFold(os.Getenv("MASHTAL_HEALTHCHECK_REQUIRE_GATEWAY"), "true")
	os.Exit(check(normalizeAddr(os.Getenv("MASHTAL_LISTEN_ADDR")), requireGateway))
}

func check(addr string, requireGateway bool) int {
	client := &http.Client{Timeout: probeTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(body) {
		return 1
	}

	health := gjson.ParseBytes(body)
	if health.Get("status").String() != "ok" {
		return 1
	}
	if requireGateway && !health.Get("gateway_ready").Bool() {
		return 1
	}

	return 0
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address. Containers bind 0.0.0.0 but the probe runs inside the
// same container, so loopback is reachable.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
