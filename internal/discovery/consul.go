package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/consul/api"
)

// checkTTL is the window Consul's agent allows between UpdateTTL calls
// before marking the check critical; renewInterval (half of it) is how
// often the gateway actually reports, so a single delayed tick never lets
// the check lapse.
const (
	checkTTL                       = 15 * time.Second
	renewInterval                  = checkTTL / 2
	deregisterCriticalServiceAfter = "1m"
)

// ConsulClient registers with Consul's agent API using active TTL checks:
// the gateway itself doesn't expose an HTTP health endpoint for Consul to
// poll, so it reports liveness by updating the check's TTL instead, on a
// recurring schedule for as long as it stays registered.
type ConsulClient struct {
	agent *api.Agent
	log   *slog.Logger
}

// NewConsulClient dials the Consul agent at addr. An empty addr uses the
// library default (localhost:8500 or CONSUL_HTTP_ADDR).
func NewConsulClient(addr string, log *slog.Logger) (*ConsulClient, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: new consul client: %w", err)
	}
	return &ConsulClient{agent: cli.Agent(), log: log}, nil
}

func (c *ConsulClient) Register(_ context.Context, id, service, addr string, port int) error {
	reg := &api.AgentServiceRegistration{
		ID:      id,
		Name:    service,
		Address: addr,
		Port:    port,
		Check: &api.AgentServiceCheck{
			TTL:                            checkTTL.String(),
			DeregisterCriticalServiceAfter: deregisterCriticalServiceAfter,
		},
	}
	if err := c.agent.ServiceRegister(reg); err != nil {
		return fmt.Errorf("discovery: register %s: %w", id, err)
	}
	return c.agent.UpdateTTL("service:"+id, "", api.HealthPassing)
}

func (c *ConsulClient) Deregister(_ context.Context, id string) error {
	if err := c.agent.ServiceDeregister(id); err != nil {
		return fmt.Errorf("discovery: deregister %s: %w", id, err)
	}
	return nil
}

// Renew reports the check for id still passing. Callers must invoke this
// at roughly renewInterval while the service stays registered, or Consul
// will mark the check critical after checkTTL and deregister the service
// entirely after deregisterCriticalServiceAfter.
func (c *ConsulClient) Renew(id string) error {
	return c.agent.UpdateTTL("service:"+id, "", api.HealthPassing)
}
