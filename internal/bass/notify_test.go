//go:build test

package bass_test

import (
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/testutils/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stateChar(h uint16) *ble.Characteristic {
	return &ble.Characteristic{UUID: bass.ReceiveStateUUID, Handle: h - 1, ValueHandle: h}
}

func TestNotifyRegistry(t *testing.T) {
	client := &mocks.MockRemoteClient{}
	client.On("Subscribe", mock.Anything).Return(nil)
	client.On("Unsubscribe", mock.Anything).Return(nil)

	n := bass.NewNotifyRegistry(client)

	var got [][]byte
	id1, err := n.Register(stateChar(0x11), func(v []byte) { got = append(got, v) })
	require.NoError(t, err)
	id2, err := n.Register(stateChar(0x14), func([]byte) {})
	require.NoError(t, err)

	assert.NotZero(t, id1, "ids MUST NOT be zero")
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, n.Len())

	client.Notify(0x11, []byte{0xAA})
	assert.Equal(t, [][]byte{{0xAA}}, got)

	assert.True(t, n.Unregister(id1))
	assert.False(t, n.Unregister(id1))
	assert.False(t, client.Subscribed(0x11))
	assert.Equal(t, 1, n.Len())

	n.Clear()
	assert.Zero(t, n.Len())
	client.AssertNumberOfCalls(t, "Unsubscribe", 2)
}

func TestNotifyRegistry_ReplacesHandle(t *testing.T) {
	client := &mocks.MockRemoteClient{}
	client.On("Subscribe", mock.Anything).Return(nil)

	n := bass.NewNotifyRegistry(client)

	var first, second int
	_, err := n.Register(stateChar(0x11), func([]byte) { first++ })
	require.NoError(t, err)
	_, err = n.Register(stateChar(0x11), func([]byte) { second++ })
	require.NoError(t, err)

	client.Notify(0x11, []byte{0x01})

	assert.Equal(t, 1, n.Len())
	assert.Zero(t, first, "replaced callback MUST NOT be called")
	assert.Equal(t, 1, second)
}

func TestNotifyRegistry_SubscribeError(t *testing.T) {
	client := &mocks.MockRemoteClient{}
	client.On("Subscribe", mock.Anything).Return(errors.New("not permitted"))

	n := bass.NewNotifyRegistry(client)

	id, err := n.Register(stateChar(0x11), func([]byte) {})
	assert.Error(t, err)
	assert.Zero(t, id)
	assert.Zero(t, n.Len(), "failed registration MUST NOT be kept")
}
