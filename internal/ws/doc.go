// Package ws streams fresh EFD samples to WebSocket clients. The Hub polls
// each configured topic on a fixed interval for rows newer than its cursor
// and broadcasts them as JSON envelopes to every connected client. Clients
// that fall behind are disconnected rather than buffered without bound.
package ws
