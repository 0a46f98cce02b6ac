package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const pingTimeout = 300 * time.Millisecond

// DetectResidentPort scans the port range and returns the first port whose
// listener answers PING with PONG. Ports held by other programs are skipped.
func DetectResidentPort(ctx context.Context) (int, bool) {
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(residentAddr(port), pingDeadline(ctx)) {
			return port, true
		}
	}
	return 0, false
}

func residentAddr(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}

// pingDeadline is pingTimeout, shortened when ctx expires sooner.
func pingDeadline(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < pingTimeout {
			return d
		}
	}
	return pingTimeout
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
