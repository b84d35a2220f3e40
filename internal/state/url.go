package state

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ParseURL parses an upstream proxy URL into a ProxyInfo.
//
// Supported schemes:
//   - socks5://[user:pass@]host:port
//   - http://[user:pass@]host:port (HTTP CONNECT)
//
// A default port is applied if the URL host is missing one.
func ParseURL(s string) (*ProxyInfo, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	if u.Path != "" && u.Path != "/" {
		return nil, errors.New("invalid url: path should be empty")
	}

	var kind Kind
	switch u.Scheme {
	case "":
		return nil, errors.New("invalid url: missing scheme")
	case "socks5":
		kind = KindSOCKS5
	case "http":
		kind = KindHTTPConnect
	default:
		return nil, fmt.Errorf("invalid url scheme: %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, errors.New("invalid url: missing host")
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = defaultPortForScheme(u.Scheme)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid url port %q: %w", portStr, err)
	}

	info := &ProxyInfo{
		Address: host,
		Port:    uint16(port),
		Kind:    kind,
	}
	if u.User != nil {
		user := u.User.Username()
		info.Username = &user
		if pass, ok := u.User.Password(); ok {
			info.Password = &pass
		}
	}

	// The dial path needs a resolved proxy address.
	if net.ParseIP(host) == nil {
		return nil, fmt.Errorf("invalid url host %q: must be an IP address", host)
	}

	return info, nil
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "8080"
	case "socks5":
		return "1080"
	default:
		return ""
	}
}
