// Package mt4 implements a client for the MT4 Web Terminal protocol: the
// HTTP token exchange, the AES-256-CBC encrypted WebSocket duplex channel,
// and the request/response lifecycle for trading operations.
//
// A Session is the entry point. It drives the handshake, maintains a
// mirror of open positions from snapshot and delta updates, and exposes
// trading verbs (Buy, Sell, CloseOrder, ...) alongside an Events channel
// for everything the server pushes unsolicited.
package mt4
