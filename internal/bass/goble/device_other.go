//go:build !linux && !darwin

package goble

import (
	"errors"

	"github.com/go-ble/ble"
)

func newDevice() (ble.Device, error) {
	return nil, errors.New("no BLE device support on this platform")
}
