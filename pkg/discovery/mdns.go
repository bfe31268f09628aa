package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

// Advertiser publishes the command port over mDNS for clients that resolve
// the tree by name instead of probing.
type Advertiser struct {
	Instance string
	Service  string
	Domain   string
	Port     int
	Text     []string
}

func (a *Advertiser) Name() string {
	return "mdns"
}

// Run registers the service and withdraws it when ctx ends.
func (a *Advertiser) Run(ctx context.Context) error {
	server, err := zeroconf.Register(a.Instance, a.Service, a.Domain, a.Port, a.Text, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	log.Info().
		Str("instance", a.Instance).
		Str("service", a.Service).
		Int("port", a.Port).
		Msg("mDNS service advertised")

	<-ctx.Done()
	server.Shutdown()
	log.Info().Msg("mDNS service withdrawn")
	return nil
}
