// Package pkg groups the sub-packages of the MCP SDK.
//
// The protocol runtime lives in session, built on the envelopes of protocol
// and the delivery contracts of transport. The client and server packages
// implement the two protocol roles on top of a session, each with a
// blocking facade. pagination, errors, logging and observability carry the
// supporting concerns.
//
// See the root package documentation for usage examples.
package pkg
