//go:build !(linux && (amd64 || arm64))

package iso

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// NewSocketOpener is only available on Linux; use Loopback elsewhere.
func NewSocketOpener(_ *logrus.Logger) (Opener, error) {
	return nil, errors.New("iso sockets are not supported on this platform")
}
