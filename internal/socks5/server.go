package socks5

import (
	"fmt"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

// CmdConnect is the SOCKS5 CONNECT command value.
const CmdConnect = txsocks5.CmdConnect

// ServerNegotiate performs the server side of method selection on conn. A
// nil auth accepts only the no-authentication method; otherwise the client
// must offer username/password and present matching credentials.
func ServerNegotiate(conn net.Conn, auth *Auth) error {
	neg, err := txsocks5.NewNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("negotiation request: %w", err)
	}

	if auth == nil {
		if !containsMethod(neg.Methods, txsocks5.MethodNone) {
			writeNoAcceptableMethods(conn)
			return fmt.Errorf("client does not offer no-auth")
		}
		if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodNone).WriteTo(conn); err != nil {
			return fmt.Errorf("negotiation reply: %w", err)
		}
		return nil
	}

	if !containsMethod(neg.Methods, txsocks5.MethodUsernamePassword) {
		writeNoAcceptableMethods(conn)
		return fmt.Errorf("client does not offer username/password")
	}
	if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodUsernamePassword).WriteTo(conn); err != nil {
		return fmt.Errorf("negotiation reply: %w", err)
	}

	urq, err := txsocks5.NewUserPassNegotiationRequestFrom(conn)
	if err != nil {
		return fmt.Errorf("read userpass: %w", err)
	}
	if string(urq.Uname) != auth.Username || string(urq.Passwd) != auth.Password {
		_, _ = txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusFailure).WriteTo(conn)
		return ErrAuthFailed
	}
	if _, err := txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusSuccess).WriteTo(conn); err != nil {
		return fmt.Errorf("write userpass: %w", err)
	}
	return nil
}

// ServerReadRequest reads the client's command request from conn.
func ServerReadRequest(conn net.Conn) (*txsocks5.Request, error) {
	req, err := txsocks5.NewRequestFrom(conn)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return req, nil
}

// WriteCommandNotSupportedReply tells the client the requested command is
// not supported.
func WriteCommandNotSupportedReply(conn net.Conn, atyp byte) {
	_, _ = newZeroAddrReply(txsocks5.RepCommandNotSupported, atyp).WriteTo(conn)
}

// WriteConnectionRefusedReply tells the client the destination connection
// could not be established.
func WriteConnectionRefusedReply(conn net.Conn, atyp byte) {
	_, _ = newZeroAddrReply(txsocks5.RepConnectionRefused, atyp).WriteTo(conn)
}

// WriteSuccessReply acknowledges the request using localAddr as the bound
// address.
func WriteSuccessReply(conn net.Conn, localAddr net.Addr) error {
	a, addr, port, err := txsocks5.ParseAddress(localAddr.String())
	if err != nil {
		return fmt.Errorf("parse local address %q: %w", localAddr.String(), err)
	}
	if a == txsocks5.ATYPDomain {
		addr = addr[1:]
	}
	if _, err := txsocks5.NewReply(txsocks5.RepSuccess, a, addr, port).WriteTo(conn); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}

func newZeroAddrReply(rep, atyp byte) *txsocks5.Reply {
	if atyp == txsocks5.ATYPIPv6 {
		return txsocks5.NewReply(rep, txsocks5.ATYPIPv6, []byte(net.IPv6zero), []byte{0x00, 0x00})
	}
	return txsocks5.NewReply(rep, txsocks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00})
}

func writeNoAcceptableMethods(conn net.Conn) {
	// RFC 1928: 0xFF indicates no acceptable methods.
	_, _ = txsocks5.NewNegotiationReply(0xff).WriteTo(conn)
}

func containsMethod(methods []byte, want byte) bool {
	for _, m := range methods {
		if m == want {
			return true
		}
	}
	return false
}
