package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/groutine"
)

// Client adapts a connected ble.Client with a discovered profile to
// bass.RemoteClient.
type Client struct {
	client  ble.Client
	profile *ble.Profile
	logger  *logrus.Logger
}

// NewClient wraps an already discovered client.
func NewClient(c ble.Client, profile *ble.Profile, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{client: c, profile: profile, logger: logger}
}

// Dial connects to address and discovers its profile.
func Dial(ctx context.Context, address string, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)

	logger.WithField("address", address).Debug("Dialing BLE device...")
	cl, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	profile, err := cl.DiscoverProfile(true)
	if err != nil {
		if cancelErr := cl.CancelConnection(); cancelErr != nil {
			logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection after discovery failure")
		}
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	logger.WithFields(logrus.Fields{
		"address":  address,
		"services": len(profile.Services),
	}).Debug("Profile discovered successfully")

	return NewClient(cl, profile, logger), nil
}

func (c *Client) Transport() bass.Transport {
	return c.client.Conn()
}

func (c *Client) Services() []*ble.Service {
	if c.profile == nil {
		return nil
	}
	return c.profile.Services
}

// Read reads c on its own goroutine and reports through done.
func (c *Client) Read(ch *ble.Characteristic, done func([]byte, error)) {
	groutine.Go(context.Background(), fmt.Sprintf("bass-read-%04x", ch.ValueHandle), func(ctx context.Context) {
		value, err := c.client.ReadCharacteristic(ch)
		done(value, NormalizeError(err))
	})
}

func (c *Client) Subscribe(ch *ble.Characteristic, fn func([]byte)) error {
	return NormalizeError(c.client.Subscribe(ch, false, fn))
}

func (c *Client) Unsubscribe(ch *ble.Characteristic) error {
	return NormalizeError(c.client.Unsubscribe(ch, false))
}

func (c *Client) Write(ch *ble.Characteristic, value []byte, withResponse bool) error {
	return NormalizeError(c.client.WriteCharacteristic(ch, value, !withResponse))
}

// Disconnected is closed when the link drops.
func (c *Client) Disconnected() <-chan struct{} {
	return c.client.Disconnected()
}

// Close cancels the connection.
func (c *Client) Close() error {
	return NormalizeError(c.client.CancelConnection())
}
