package singleinstance

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	modeStdout    = "STDOUT"
	modeClipboard = "CLIPBOARD"
)

func (r Request) encode() string {
	var b strings.Builder
	if r.OutputToStdout {
		b.WriteString(modeStdout)
	} else {
		b.WriteString(modeClipboard)
	}
	if r.Scale > 0 {
		fmt.Fprintf(&b, " scale=%s", strconv.FormatFloat(r.Scale, 'f', -1, 64))
	}
	if r.Format != "" {
		fmt.Fprintf(&b, " format=%s", r.Format)
	}
	b.WriteByte('\n')
	return b.String()
}

// parseRequest decodes a request line. Unknown keys and malformed values
// are ignored so older clients keep working.
func parseRequest(line string) Request {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}
	}
	req := Request{OutputToStdout: fields[0] == modeStdout}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch k {
		case "scale":
			if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 && s <= 1 {
				req.Scale = s
			}
		case "format":
			req.Format = v
		}
	}
	return req
}

func (r Request) mode() string {
	if r.OutputToStdout {
		return modeStdout
	}
	return modeClipboard
}
