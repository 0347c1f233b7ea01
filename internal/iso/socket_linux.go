//go:build linux && (amd64 || arm64)

package iso

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/groutine"
	"golang.org/x/sys/unix"
)

// BlueZ socket constants not exported by x/sys/unix.
const (
	btprotoISO   = 8
	solBluetooth = 274
	btISOQoS     = 17

	bdaddrLEPublic = 0x01
	bdaddrLERandom = 0x02

	sockaddrISOLen = 2 + 6 + 1 + 6 + 1 + 1 + 1 + MaxBIS
	isoQoSLen      = 60
)

// SocketOpener opens BlueZ ISO sockets in broadcast receiver mode.
type SocketOpener struct {
	logger *logrus.Logger
}

// NewSocketOpener returns an Opener backed by the kernel ISO socket family.
func NewSocketOpener(logger *logrus.Logger) (Opener, error) {
	if logger == nil {
		logger = logrus.New()
	}
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, btprotoISO)
	if err != nil {
		return nil, fmt.Errorf("iso sockets unavailable: %w", err)
	}
	_ = unix.Close(fd)
	return &SocketOpener{logger: logger}, nil
}

func leAddrType(t uint8) byte {
	if t != 0 {
		return bdaddrLERandom
	}
	return bdaddrLEPublic
}

// sockaddrISO lays out struct sockaddr_iso followed by one sockaddr_iso_bc.
func sockaddrISO(p ListenParams) []byte {
	b := make([]byte, sockaddrISOLen)
	binary.LittleEndian.PutUint16(b[0:2], unix.AF_BLUETOOTH)
	copy(b[2:8], p.Adapter[:])
	b[8] = bdaddrLEPublic
	copy(b[9:15], p.Dest[:])
	b[15] = leAddrType(p.DestType)
	b[16] = p.SID
	b[17] = uint8(len(p.BIS))
	copy(b[18:], p.BIS)
	return b
}

// isoQoS lays out struct bt_iso_qos for the broadcast arm of the union.
func isoQoS(q QoS) []byte {
	b := make([]byte, isoQoSLen)
	b[0] = 0xFF // big unset
	b[1] = 0xFF // bis unset
	b[2] = q.SyncInterval
	for _, off := range []int{8, 20} { // in, out
		binary.LittleEndian.PutUint32(b[off:], q.Interval)
		binary.LittleEndian.PutUint16(b[off+4:], q.Latency)
		binary.LittleEndian.PutUint16(b[off+6:], q.SDU)
		b[off+8] = q.PHY
		b[off+9] = q.RTN
	}
	binary.LittleEndian.PutUint16(b[52:], q.SyncTimeout)
	binary.LittleEndian.PutUint16(b[56:], q.Timeout)
	return b
}

func (o *SocketOpener) Listen(p ListenParams, onAccept func(Conn)) (Listener, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, btprotoISO)
	if err != nil {
		return nil, fmt.Errorf("iso socket: %w", err)
	}

	sa := sockaddrISO(p)
	if _, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa[0])), uintptr(len(sa))); errno != 0 {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("iso bind: %w", errno)
	}

	if err := unix.SetsockoptString(fd, solBluetooth, btISOQoS, string(isoQoS(p.QoS))); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("iso qos: %w", err)
	}

	if err := unix.Listen(fd, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("iso listen: %w", err)
	}

	ln := &socketListener{fd: fd, logger: o.logger}
	ctx, cancel := context.WithCancel(context.Background())
	ln.cancel = cancel
	ln.loops.Go(ctx, fmt.Sprintf("iso-accept-%d", fd), func(ctx context.Context) {
		ln.acceptLoop(ctx, onAccept)
	})

	o.logger.WithFields(logrus.Fields{
		"fd":  fd,
		"sid": p.SID,
		"bis": p.BIS,
	}).Debug("ISO listener opened")

	return ln, nil
}

type socketListener struct {
	fd     int
	logger *logrus.Logger
	cancel context.CancelFunc
	loops  groutine.Group

	mu     sync.Mutex
	closed bool
}

func (ln *socketListener) acceptLoop(ctx context.Context, onAccept func(Conn)) {
	for {
		nfd, _, errno := unix.Syscall6(unix.SYS_ACCEPT4, uintptr(ln.fd), 0, 0, unix.SOCK_CLOEXEC, 0, 0)
		if errno != 0 {
			if errno == unix.EINTR {
				continue
			}
			if ctx.Err() == nil {
				ln.logger.WithError(errno).Debug("ISO accept loop stopped")
			}
			return
		}
		if ctx.Err() != nil {
			_ = unix.Close(int(nfd))
			return
		}
		onAccept(&socketConn{fd: int(nfd)})
	}
}

func (ln *socketListener) Close() error {
	ln.mu.Lock()
	if ln.closed {
		ln.mu.Unlock()
		return ErrClosed
	}
	ln.closed = true
	ln.mu.Unlock()

	ln.cancel()
	_ = unix.Shutdown(ln.fd, unix.SHUT_RDWR)
	err := unix.Close(ln.fd)
	ln.loops.Wait()
	return err
}

type socketConn struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// Err polls the socket for POLLERR with a zero timeout and reports SO_ERROR.
func (c *socketConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLERR}}
	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 || fds[0].Revents&unix.POLLERR == 0 {
		return nil
	}

	soErr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || soErr == 0 {
		return errors.New("iso: socket error condition")
	}
	return unix.Errno(soErr)
}

func (c *socketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return unix.Close(c.fd)
}
