package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"LiveAnnotate/internal/config"
	"LiveAnnotate/internal/net"
)

// discoverHost is the host_address value that asks for an mDNS lookup.
const discoverHost = "auto"

var errNoHostFound = errors.New("no host found on the local network")

// session is the open transport plus what the host needs to know about it.
type session struct {
	channel  net.Channel
	hub      *net.Hub // set when hosting over tcp
	identity string   // fallback identity when none is configured
	status   string
	closers  []io.Closer

	// sync, when attached, drains queued messages before closing channel.
	sync io.Closer
}

func (s *session) Close() error {
	var errs []error
	if s.sync != nil {
		errs = append(errs, s.sync.Close())
	} else {
		errs = append(errs, s.channel.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openSession connects to the transport selected by cfg.
func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	hostname, _ := os.Hostname()
	s := &session{identity: hostname}

	switch cfg.Transport {
	case config.TransportTCP:
		if cfg.Hosting() {
			return hostTCP(ctx, cfg, s, logger)
		}
		return joinTCP(ctx, cfg, s, logger)

	case config.TransportWebSocket:
		target := cfg.WebSocketURL
		if cfg.WebSocketListen != "" {
			hub := net.NewWSHub(logger)
			mux := http.NewServeMux()
			mux.Handle("/annotate", hub)
			srv := &http.Server{Addr: cfg.WebSocketListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("websocket relay failed", "error", err)
				}
			}()
			s.closers = append(s.closers, srv)
			if target == "" {
				target = "ws://" + loopbackAddr(cfg.WebSocketListen) + "/annotate"
			}
		}
		u, err := withSession(target, cfg.Session)
		if err != nil {
			return nil, err
		}
		client, err := dialRetry(ctx, logger, func() (*net.WSClient, error) {
			return net.DialWebSocket(ctx, u, cfg.Codec == "cbor", logger)
		})
		if err != nil {
			return nil, err
		}
		s.channel = client
		s.status = "Connected to " + u
		return s, nil

	case config.TransportRedis:
		ch, err := net.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.Session, logger)
		if err != nil {
			return nil, err
		}
		s.channel = ch
		s.status = fmt.Sprintf("Session %q on %s", cfg.Session, cfg.RedisAddr)
		return s, nil

	case config.TransportLiveKit:
		identity := cfg.Identity
		if identity == "" {
			identity = hostname
		}
		ch, err := net.DialLiveKit(net.LiveKitOptions{
			URL:       cfg.LiveKitURL,
			APIKey:    cfg.LiveKitAPIKey,
			APISecret: cfg.LiveKitAPISecret,
			Room:      cfg.LiveKitRoom,
			Identity:  identity,
		}, logger)
		if err != nil {
			return nil, err
		}
		s.channel = ch
		s.identity = identity
		s.status = "Joined room " + cfg.LiveKitRoom
		return s, nil

	case config.TransportLoopback:
		s.channel = net.NewBus().Join()
		s.status = "Offline"
		return s, nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func hostTCP(ctx context.Context, cfg *config.Config, s *session, logger *slog.Logger) (*session, error) {
	hub, err := net.ListenTCP(fmt.Sprintf(":%d", cfg.TCPPort), logger)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := hub.Serve(ctx); err != nil {
			logger.Error("hub stopped", "error", err)
		}
	}()
	s.channel = hub
	s.hub = hub
	s.identity = "host"

	if cfg.MDNS {
		server, err := net.Advertise(hub.Port(), cfg.Session)
		if err != nil {
			logger.Warn("mDNS advertising disabled", "error", err)
		} else {
			s.closers = append(s.closers, closerFunc(server.Shutdown))
		}
	}

	link := net.ShareLink(net.OutgoingIP(logger), hub.Port())
	logger.Info("share this link to join", "link", link)
	s.status = "Share link: " + link
	return s, nil
}

func joinTCP(ctx context.Context, cfg *config.Config, s *session, logger *slog.Logger) (*session, error) {
	addr := cfg.HostAddress
	if addr == discoverHost {
		found, err := discover(ctx, logger)
		if err != nil {
			return nil, err
		}
		addr = found
	}
	client, err := dialRetry(ctx, logger, func() (*net.TCPClient, error) {
		return net.DialTCP(ctx, addr, logger)
	})
	if err != nil {
		return nil, err
	}
	s.channel = client
	// A client is known by its own address, unique within the session.
	s.identity = client.LocalAddr()
	s.status = "Connected to host as " + client.LocalAddr()
	logger.Info("connected to host", "host", addr, "as", client.LocalAddr())

	go func() {
		select {
		case <-client.Done():
			logger.Warn("disconnected from host", "host", addr)
		case <-ctx.Done():
		}
	}()
	return s, nil
}

// discover browses mDNS for a hosted session and returns the first one.
func discover(ctx context.Context, logger *slog.Logger) (string, error) {
	found := make(chan string, 1)
	err := net.Browse(ctx, 3*time.Second, func(addr string) {
		select {
		case found <- addr:
		default:
		}
	})
	if err != nil && ctx.Err() != nil {
		return "", err
	}
	if err != nil {
		logger.Warn("mDNS browse failed", "error", err)
	}
	select {
	case addr := <-found:
		logger.Info("found host", "addr", addr)
		return addr, nil
	default:
		return "", errNoHostFound
	}
}

// dialRetry retries dial a few times with backoff while ctx is live.
func dialRetry[C any](ctx context.Context, logger *slog.Logger, dial func() (C, error)) (C, error) {
	var (
		c   C
		err error
	)
	delay := 250 * time.Millisecond
	for attempt := 1; attempt <= 5; attempt++ {
		if c, err = dial(); err == nil {
			return c, nil
		}
		logger.Warn("dial failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return c, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return c, err
}

func withSession(raw, session string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url %q: %w", raw, err)
	}
	q := u.Query()
	if q.Get("session") == "" {
		q.Set("session", session)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// loopbackAddr turns a listen address such as ":9000" into one a local
// client can dial.
func loopbackAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
