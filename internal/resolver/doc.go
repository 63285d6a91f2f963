// Package resolver turns SOCKS5 targets into ordered lists of connectable
// addresses.
//
// Two resolvers are provided: [System], backed by the Go runtime resolver,
// and [DNS], which queries a configured DNS server directly with
// github.com/miekg/dns and caches answers for their TTL.
package resolver
