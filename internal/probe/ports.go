package probe

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultPorts is the common-service set probed when the caller passes
// none.
var DefaultPorts = []int{80, 443, 21, 22, 25, 53, 110, 143, 3306, 5432, 8000, 8080, 8443}

const portConcurrency = 32

// ScanPorts attempts a TCP connect to every port with the given timeout.
// A timeout or refusal counts as closed, never as an error. Probes run
// concurrently up to an internal ceiling.
func ScanPorts(ctx context.Context, host string, ports []int, timeout time.Duration) map[int]bool {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	if timeout <= 0 {
		timeout = time.Second
	}

	results := make(map[int]bool, len(ports))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, portConcurrency)

	for _, port := range ports {
		wg.Add(1)
		sem <- struct{}{}
		go func(port int) {
			defer wg.Done()
			defer func() { <-sem }()

			open := false
			if ctx.Err() == nil {
				dialer := net.Dialer{Timeout: timeout}
				conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
				if err == nil {
					conn.Close()
					open = true
				}
			}

			mu.Lock()
			results[port] = open
			mu.Unlock()
		}(port)
	}
	wg.Wait()

	return results
}
