package net

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Scheme prefixes share links handed to joining participants.
const Scheme = "liveannotate://"

// OutgoingIP finds the preferred local IP address for the host to share.
func OutgoingIP(logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// Offline networks: fall back to the interface list.
		return firstIPv4(logger).String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// ShareLink builds the link a client passes on its command line to join.
func ShareLink(ip string, port int) string {
	return fmt.Sprintf("%s%s", Scheme, net.JoinHostPort(ip, fmt.Sprint(port)))
}

// ParseShareLink extracts host:port from a share link.
func ParseShareLink(link string) (string, bool) {
	if !strings.HasPrefix(link, Scheme) {
		return "", false
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, Scheme), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", false
	}
	return addr, true
}
