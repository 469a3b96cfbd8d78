package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

const defaultPort = 8765

func main() {
	os.Exit(check())
}

func check() int {
	addr := healthAddr(os.Getenv("ISSUETRIAGE_PORT"))

	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/health", addr), nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}

// healthAddr targets loopback. The server binds all interfaces but the check
// runs inside the same container.
func healthAddr(rawPort string) string {
	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 1 || port > 65535 {
		port = defaultPort
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}
