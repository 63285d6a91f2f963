// Package proxy implements the socksrelay SOCKS5 CONNECT server.
//
// It contains the connection acceptor, the per-connection relay (handshake,
// outbound connect, reply, bidirectional copy), and shared connection
// plumbing such as the listener and coordinated shutdown of relayed
// connections.
package proxy
