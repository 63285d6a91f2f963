package socks5

import (
	txsocks5 "github.com/txthinking/socks5"
)

// Version is the only protocol version accepted at every version checkpoint.
const Version = txsocks5.Ver

// Authentication methods.
const (
	MethodNone             = txsocks5.MethodNone
	MethodUsernamePassword = txsocks5.MethodUsernamePassword
	MethodNoAcceptable     = txsocks5.MethodUnsupportAll
)

// CmdConnect is the only request command served.
const CmdConnect = txsocks5.CmdConnect

// Address types.
const (
	ATYPIPv4   = txsocks5.ATYPIPv4
	ATYPDomain = txsocks5.ATYPDomain
	ATYPIPv6   = txsocks5.ATYPIPv6
)

// Reply codes.
const (
	RepSuccess             = txsocks5.RepSuccess
	RepServerFailure       = txsocks5.RepServerFailure
	RepNetworkUnreachable  = txsocks5.RepNetworkUnreachable
	RepHostUnreachable     = txsocks5.RepHostUnreachable
	RepConnectionRefused   = txsocks5.RepConnectionRefused
	RepTTLExpired          = txsocks5.RepTTLExpired
	RepCommandNotSupported = txsocks5.RepCommandNotSupported
	RepAddressNotSupported = txsocks5.RepAddressNotSupported
)

// maxFieldLen is the largest single field read during a handshake: a method
// list or domain name, each prefixed by a one byte length.
const maxFieldLen = 255
