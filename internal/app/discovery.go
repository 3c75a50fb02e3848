package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	pushServiceType = "_unidelas-push._tcp"
	pushDomain      = "local."
)

// discoverBroker browses the LAN for an advertised push broker and returns
// its MQTT address. Used when no broker address is configured.
func discoverBroker(ctx context.Context, logger *slog.Logger, timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 4)

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, pushServiceType, pushDomain, entries); err != nil {
		return "", fmt.Errorf("mdns browse: %w", err)
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", fmt.Errorf("no push broker advertised on the local network")
			}
			if entry == nil || len(entry.AddrIPv4) == 0 {
				continue
			}
			addr := fmt.Sprintf("tcp://%s:%d", entry.AddrIPv4[0], entry.Port)
			logger.Info("push broker discovered", "instance", entry.Instance, "addr", addr)
			return addr, nil
		case <-browseCtx.Done():
			return "", fmt.Errorf("no push broker advertised within %s", timeout)
		}
	}
}
