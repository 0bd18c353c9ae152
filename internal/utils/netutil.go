package utils

import (
	"context"
	"fmt"
	"net"
	"time"
)

// CheckPortAvailable reports whether nothing accepts connections on the local port.
func CheckPortAvailable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		// 连接失败，说明端口可用
		return true
	}
	conn.Close()
	return false
}

/**
 * Allocate a free TCP port on the loopback interface
 * @returns {int} A port that was free when the call returned
 * @returns {error} Error if no listener could be created
 * @description
 * - Binds 127.0.0.1:0, reads the assigned port and releases it
 * - The port may be taken by someone else before it is used
 */
func AllocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitForPort polls addr until it accepts a TCP connection or ctx ends.
func WaitForPort(ctx context.Context, addr string, interval time.Duration) error {
	var d net.Dialer
	for {
		dialCtx, cancel := context.WithTimeout(ctx, interval)
		conn, err := d.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", addr, ctx.Err())
		case <-time.After(interval):
		}
	}
}
