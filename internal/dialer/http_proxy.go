package dialer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"

	"github.com/oxchat/torway/internal/proxyconf"
)

// maxConnectResponse bounds the bytes accumulated while waiting for the end
// of a CONNECT response, so a runaway or malformed proxy cannot grow memory
// or stall the dial forever.
const maxConnectResponse = 8192

// ErrResponseTooLarge is returned when a proxy's CONNECT response exceeds
// maxConnectResponse bytes without terminating its headers.
var ErrResponseTooLarge = errors.New("dialer: http connect response too large")

// httpConnect issues a CONNECT request for target over conn, which must
// already be connected to an HTTP proxy, and reads the response up to the
// blank line ending the headers. On success the connection carries the
// tunneled bytes transparently.
func httpConnect(c net.Conn, auth *proxyconf.Auth, target netip.AddrPort) error {
	var req bytes.Buffer
	fmt.Fprintf(&req, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", target, target)
	if auth != nil {
		cred := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		fmt.Fprintf(&req, "Proxy-Authorization: Basic %s\r\n", cred)
	}
	req.WriteString("\r\n")

	if _, err := c.Write(req.Bytes()); err != nil {
		return fmt.Errorf("write connect: %w", err)
	}

	resp, err := readConnectResponse(c)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(resp, "HTTP/1.1 200") && !strings.HasPrefix(resp, "HTTP/1.0 200") {
		status, _, _ := strings.Cut(resp, "\r\n")
		return fmt.Errorf("connect failed: %s", status)
	}
	return nil
}

// readConnectResponse reads byte-by-byte until the \r\n\r\n terminating the
// response headers. CONNECT responses carry no body, so nothing of the
// tunneled stream is consumed.
func readConnectResponse(c net.Conn) (string, error) {
	resp := make([]byte, 0, 256)
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(c, buf); err != nil {
			return "", fmt.Errorf("read connect response: %w", err)
		}
		resp = append(resp, buf[0])

		if bytes.HasSuffix(resp, []byte("\r\n\r\n")) {
			return string(resp), nil
		}
		if len(resp) > maxConnectResponse {
			return "", ErrResponseTooLarge
		}
	}
}
