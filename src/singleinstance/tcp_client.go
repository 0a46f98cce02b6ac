package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

type tcpClient struct {
	// responseTimeout bounds the wait for the resident's answer; a capture
	// includes the user's selection, so it is generous.
	responseTimeout time.Duration
}

func newTCPClient() Client { return &tcpClient{responseTimeout: 2 * time.Minute} }

func (c *tcpClient) TryRunOnce(ctx context.Context, req Request) (bool, []byte, error) {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, nil, nil
	}
	return c.send(ctx, residentAddr(port), req)
}

func (c *tcpClient) send(ctx context.Context, addr string, req Request) (bool, []byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, nil, nil
	}
	defer conn.Close()

	deadline := time.Now().Add(c.responseTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(req.encode()); err != nil {
		return true, nil, err
	}
	if err := w.Flush(); err != nil {
		return true, nil, err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, nil, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return true, nil, err
	}
	switch status {
	case statusSuccess:
		return true, body, nil
	case statusError:
		return true, nil, errors.New(strings.TrimSpace(string(body)))
	}
	return true, nil, errors.New("unexpected response from resident: " + strings.TrimSpace(status))
}
