// Package discovery announces this gateway's listening ports to Consul on
// startup and withdraws them on clean shutdown. Registration failure is
// logged, never fatal: the gateway still serves connections, it just won't
// be found by service discovery until Consul is reachable again.
package discovery

import "context"

// Client is the discovery surface the gateway drives.
type Client interface {
	// Register announces one instance of a service listening on addr:port.
	Register(ctx context.Context, id, service, addr string, port int) error
	// Deregister withdraws a previously-registered instance.
	Deregister(ctx context.Context, id string) error
}
