/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const pollInterval = 10 * time.Millisecond

// GetLocalFreeTCPPort returns a TCP port on 127.0.0.1 that nobody listens on right now.
func GetLocalFreeTCPPort() int {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if err = listener.Close(); err != nil {
		panic(err)
	}
	return port
}

// GetLocalAddrWithFreeTCPPort returns 127.0.0.1:<free-tcp-port> address for an HTTP server started in a test.
func GetLocalAddrWithFreeTCPPort() string {
	return fmt.Sprintf("127.0.0.1:%d", GetLocalFreeTCPPort())
}

// WaitListeningServer polls addr until it accepts TCP connections or timeout passes.
func WaitListeningServer(addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return waitListeningServer(ctx, addr)
}

// WaitPortAndListeningServer waits until getPort reports a bound port (servers configured with ":0")
// and the server accepts TCP connections on host:port. Both steps share timeout.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var port int
	err := poll(ctx, func() error {
		if port = getPort(); port <= 0 {
			return errors.New("port is not bound yet")
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("waiting for listening port: %w", err)
	}
	return port, waitListeningServer(ctx, net.JoinHostPort(host, fmt.Sprint(port)))
}

func waitListeningServer(ctx context.Context, addr string) error {
	err := poll(ctx, func() error {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return fmt.Errorf("waiting listening server on %s: %w", addr, err)
	}
	return nil
}

// poll retries op with a constant interval until it succeeds or ctx is done.
func poll(ctx context.Context, op func() error) error {
	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = op()
		return lastErr
	}, backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx))
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		return fmt.Errorf("%w (last attempt: %v)", err, lastErr)
	}
	return err
}
