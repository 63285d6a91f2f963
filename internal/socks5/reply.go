package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"

	txsocks5 "github.com/txthinking/socks5"
)

// WriteSuccessReply writes a success reply carrying bound as the bound
// address.
func WriteSuccessReply(w io.Writer, bound net.Addr) error {
	ap, err := addrPort(bound)
	if err != nil {
		return err
	}
	if _, err := newReply(RepSuccess, ap).WriteTo(w); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}

// WriteFailureReply writes a failure reply with a zero bound address of the
// family matching atyp. Domain requests get an IPv4 zero address.
func WriteFailureReply(w io.Writer, rep byte, atyp byte) error {
	if _, err := newZeroAddrReply(rep, atyp).WriteTo(w); err != nil {
		return fmt.Errorf("failure reply: %w", err)
	}
	return nil
}

// newReply returns a reply whose address type follows the family of bind.
// IPv4-mapped IPv6 addresses are sent as IPv4; an invalid bind address is
// sent as 0.0.0.0:0.
func newReply(rep byte, bind netip.AddrPort) *txsocks5.Reply {
	addr := bind.Addr().Unmap()
	port := binary.BigEndian.AppendUint16(nil, bind.Port())
	switch {
	case addr.Is4():
		return txsocks5.NewReply(rep, ATYPIPv4, addr.AsSlice(), port)
	case addr.Is6():
		return txsocks5.NewReply(rep, ATYPIPv6, addr.AsSlice(), port)
	default:
		return newZeroAddrReply(rep, ATYPIPv4)
	}
}

func newZeroAddrReply(rep, atyp byte) *txsocks5.Reply {
	if atyp == ATYPIPv6 {
		return txsocks5.NewReply(rep, ATYPIPv6, []byte(net.IPv6zero), []byte{0x00, 0x00})
	}
	return txsocks5.NewReply(rep, ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00})
}

func writeMethodSelection(w io.Writer, method byte) error {
	_, err := txsocks5.NewNegotiationReply(method).WriteTo(w)
	return err
}

func addrPort(a net.Addr) (netip.AddrPort, error) {
	if a == nil {
		return netip.AddrPort{}, nil
	}
	if ta, ok := a.(*net.TCPAddr); ok {
		return ta.AddrPort(), nil
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("parse bound address %q: %w", a.String(), err)
	}
	return ap, nil
}
