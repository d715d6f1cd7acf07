package net

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service hosts advertise.
const ServiceType = "_liveannotate._tcp"

// Advertise announces a hosted session on port over mDNS until the returned
// server is shut down.
func Advertise(port int, session string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"LiveAnnotate", "session=" + session}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for advertised hosts for up to timeout and calls found with
// each host:port. It returns when the lookup window closes or ctx ends.
func Browse(ctx context.Context, timeout time.Duration, found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	go func() {
		for e := range entries {
			if addr := entryAddr(e); addr != "" {
				found(addr)
			}
		}
	}()
	defer close(entries)

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() { done <- mdns.Query(params) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Query returns once its own timeout passes; wait so entries is not
		// closed while it is still writing.
		<-done
		return ctx.Err()
	}
}

func entryAddr(e *mdns.ServiceEntry) string {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return ""
	}
	return net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port))
}

// firstIPv4 returns the first non-loopback IPv4 address of an up interface.
func firstIPv4(logger *slog.Logger) net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	logger.Warn("no suitable local IP found, share link uses loopback")
	return net.IPv4(127, 0, 0, 1)
}
