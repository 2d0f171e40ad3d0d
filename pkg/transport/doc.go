// Package transport defines the narrow link interfaces lanes are built on and
// provides basic implementations (mem, tcp, udp, quic, pipe).
//
// Key concepts:
// - Transport: dials/listens for Links of a specific Kind
// - Link: a framed bidirectional connection with a Quality snapshot
// - Probe/Echo: RTT measurement feeding the lane performance model
//
// Once a lane is chosen by the protocol layer, how bytes actually move is
// entirely the transport's business; the selection framework only ever reads
// Kind and Quality.
package transport
