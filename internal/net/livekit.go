package net

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/livekit/protocol/auth"
	lksdk "github.com/livekit/server-sdk-go/v2"
)

// LiveKitTopic is the data packet topic annotation messages travel on.
const LiveKitTopic = "annotation"

const liveKitTokenTTL = 6 * time.Hour

var (
	// ErrMissingLiveKitCredentials is returned when the API key or secret is empty.
	ErrMissingLiveKitCredentials = errors.New("livekit API key and secret are required")

	// ErrMissingRoom is returned when no room or identity is given.
	ErrMissingRoom = errors.New("livekit room and identity are required")
)

// LiveKitOptions selects the room to join.
type LiveKitOptions struct {
	URL       string
	APIKey    string
	APISecret string
	Room      string
	Identity  string
}

// LiveKitToken signs a join token for opts.
func LiveKitToken(opts LiveKitOptions) (string, error) {
	if opts.APIKey == "" || opts.APISecret == "" {
		return "", ErrMissingLiveKitCredentials
	}
	if opts.Room == "" || opts.Identity == "" {
		return "", ErrMissingRoom
	}
	at := auth.NewAccessToken(opts.APIKey, opts.APISecret)
	at.SetIdentity(opts.Identity)
	at.AddGrant(&auth.VideoGrant{
		RoomJoin: true,
		Room:     opts.Room,
	})
	at.SetValidFor(liveKitTokenTTL)
	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// LiveKitChannel carries a session as reliable data packets in a LiveKit room.
type LiveKitChannel struct {
	room   *lksdk.Room
	logger *slog.Logger
	in     inbox
}

// DialLiveKit joins the room described by opts.
func DialLiveKit(opts LiveKitOptions, logger *slog.Logger) (*LiveKitChannel, error) {
	token, err := LiveKitToken(opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &LiveKitChannel{logger: logger.With("component", "livekit", "room", opts.Room)}

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket: c.onData,
		},
		OnDisconnected: func() {
			c.logger.Info("disconnected from room")
		},
	}
	room, err := lksdk.ConnectToRoomWithToken(opts.URL, token, cb)
	if err != nil {
		return nil, fmt.Errorf("join room %s: %w", opts.Room, err)
	}
	c.room = room
	c.logger.Info("joined room", "identity", opts.Identity)
	return c, nil
}

func (c *LiveKitChannel) onData(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
	pkt, ok := data.(*lksdk.UserDataPacket)
	if !ok || (pkt.Topic != "" && pkt.Topic != LiveKitTopic) {
		return
	}
	c.in.deliver(pkt.Payload)
}

func (c *LiveKitChannel) Send(b []byte) error {
	if c.room == nil {
		return ErrChannelClosed
	}
	return c.room.LocalParticipant.PublishDataPacket(
		lksdk.UserData(b),
		lksdk.WithDataPublishReliable(true),
		lksdk.WithDataPublishTopic(LiveKitTopic),
	)
}

// OnMessage installs fn. Packets received before it is set are held and
// delivered on installation.
func (c *LiveKitChannel) OnMessage(fn func([]byte)) { c.in.set(fn) }

func (c *LiveKitChannel) Close() error {
	if c.room != nil {
		c.room.Disconnect()
	}
	return nil
}
