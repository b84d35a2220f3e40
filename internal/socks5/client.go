package socks5

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	txsocks5 "github.com/txthinking/socks5"
)

var (
	// ErrNoAcceptableMethod is returned when the proxy selects an
	// authentication method the client did not offer or cannot perform.
	ErrNoAcceptableMethod = errors.New("socks5: no acceptable authentication method")

	// ErrAuthFailed is returned when the proxy rejects the supplied
	// username/password credentials.
	ErrAuthFailed = errors.New("socks5: authentication failed")
)

// Auth configures optional username/password authentication. A nil *Auth
// offers only the no-authentication method.
type Auth struct {
	Username string
	Password string
}

// ClientHandshake negotiates a CONNECT tunnel to target over conn, which
// must already be connected to a SOCKS5 proxy. On success conn carries the
// tunneled bytes transparently; on failure closing conn is left to the
// caller. Only IP targets are supported: the dial path hands the codec
// resolved socket addresses, never hostnames.
func ClientHandshake(conn net.Conn, auth *Auth, target netip.AddrPort) error {
	if err := clientNegotiate(conn, auth); err != nil {
		return err
	}
	return clientConnect(conn, target)
}

func clientNegotiate(conn net.Conn, auth *Auth) error {
	methods := []byte{txsocks5.MethodNone}
	if auth != nil {
		methods = append(methods, txsocks5.MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(conn); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case txsocks5.MethodNone:
		return nil
	case txsocks5.MethodUsernamePassword:
		if auth == nil {
			return ErrNoAcceptableMethod
		}

		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(conn); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(conn)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != txsocks5.UserPassStatusSuccess {
			return ErrAuthFailed
		}
		return nil
	default:
		return ErrNoAcceptableMethod
	}
}

func clientConnect(conn net.Conn, target netip.AddrPort) error {
	addr := target.Addr().Unmap()
	atyp := txsocks5.ATYPIPv4
	if addr.Is6() {
		atyp = txsocks5.ATYPIPv6
	}
	port := target.Port()
	dstPort := []byte{byte(port >> 8), byte(port)}

	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, addr.AsSlice(), dstPort).WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	// NewReplyFrom consumes the bound address according to its address
	// type, so nothing of the tunneled stream is read here.
	rep, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return fmt.Errorf("connect failed: reply code %#02x", rep.Rep)
	}
	return nil
}
