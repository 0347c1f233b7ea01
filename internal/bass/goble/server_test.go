package goble

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/iso"
	"github.com/stretchr/testify/suite"
)

type fakeHost struct {
	services []*ble.Service
}

func (h *fakeHost) AddService(svc *ble.Service) error {
	h.services = append(h.services, svc)
	return nil
}

type fakeConn struct {
	ble.Conn
	addr ble.Addr
}

func (c *fakeConn) RemoteAddr() ble.Addr { return c.addr }

type fakeRequest struct {
	ble.Request
	conn   ble.Conn
	data   []byte
	offset int
}

func (r *fakeRequest) Conn() ble.Conn { return r.conn }
func (r *fakeRequest) Data() []byte   { return r.data }
func (r *fakeRequest) Offset() int    { return r.offset }

type fakeResponse struct {
	ble.ResponseWriter
	status ble.ATTError
	body   []byte
}

func (w *fakeResponse) SetStatus(status ble.ATTError) { w.status = status }
func (w *fakeResponse) Status() ble.ATTError          { return w.status }
func (w *fakeResponse) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

type fakeNotifier struct {
	ble.Notifier
	ctx context.Context

	mu     sync.Mutex
	values [][]byte
}

func (n *fakeNotifier) Context() context.Context { return n.ctx }
func (n *fakeNotifier) Write(b []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values = append(n.values, append([]byte(nil), b...))
	return len(b), nil
}

func (n *fakeNotifier) Values() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.values...)
}

type ServerTestSuite struct {
	suite.Suite

	host     *fakeHost
	lb       *iso.Loopback
	registry *bass.Registry
	server   *Server
	db       *bass.Database
	peer     *fakeConn
}

func (s *ServerTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	s.host = &fakeHost{}
	s.lb = iso.NewLoopback()
	s.registry = bass.NewRegistry(bass.WithLogger(logger), bass.WithISO(s.lb))
	s.server = NewServer(s.host, s.registry.Executor(), logger)

	db, err := s.registry.AddDatabase(s.server, bass.Address{})
	s.Require().NoError(err)
	s.db = db
	s.peer = &fakeConn{addr: ble.NewAddr("00:11:22:33:44:55")}
}

func (s *ServerTestSuite) TearDownTest() {
	s.registry.Shutdown()
}

func (s *ServerTestSuite) char(uuid ble.UUID, n int) *ble.Characteristic {
	seen := 0
	for _, c := range s.server.Service().Characteristics {
		if c.UUID.Equal(uuid) {
			if seen == n {
				return c
			}
			seen++
		}
	}
	s.FailNow("characteristic not published", uuid.String())
	return nil
}

func (s *ServerTestSuite) write(value []byte) ble.ATTError {
	return s.writeFrom(s.peer, value)
}

func (s *ServerTestSuite) writeFrom(peer ble.Conn, value []byte) ble.ATTError {
	rsp := &fakeResponse{}
	s.char(bass.ControlPointUUID, 0).WriteHandler.ServeWrite(&fakeRequest{conn: peer, data: value}, rsp)
	return rsp.status
}

func (s *ServerTestSuite) read(slot, offset int) *fakeResponse {
	rsp := &fakeResponse{}
	s.char(bass.ReceiveStateUUID, slot).ReadHandler.ServeRead(&fakeRequest{conn: s.peer, offset: offset}, rsp)
	return rsp
}

func (s *ServerTestSuite) subscribe(slot int) (*fakeNotifier, context.CancelFunc) {
	return s.subscribeFrom(s.peer, slot)
}

func (s *ServerTestSuite) subscribeFrom(peer ble.Conn, slot int) (*fakeNotifier, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	n := &fakeNotifier{ctx: ctx}
	before := s.server.Subscribers()
	go s.char(bass.ReceiveStateUUID, slot).NotifyHandler.ServeNotify(&fakeRequest{conn: peer}, n)
	s.Require().Eventually(func() bool { return s.server.Subscribers() == before+1 }, time.Second, 5*time.Millisecond)
	return n, cancel
}

func addSourceValue(broadcastID uint32, pa bass.PASyncParam, mask uint32) []byte {
	return bass.AddSourceCommand{
		Addr:        bass.MustParseAddress("C0:FF:EE:00:00:01"),
		BroadcastID: broadcastID,
		PASync:      pa,
		Subgroups:   []bass.SubgroupParams{{BISSync: mask}},
	}.Encode()
}

func (s *ServerTestSuite) TestRegister_PublishesService() {
	// GOAL: Verify the service has one receive state per slot and one control point
	//
	// TEST SCENARIO: register database → host receives one service → characteristic layout matches

	s.Require().Len(s.host.services, 1, "service MUST be added once")
	svc := s.host.services[0]
	s.Assert().True(svc.UUID.Equal(bass.ServiceUUID))
	s.Require().Len(svc.Characteristics, bass.DefaultReceiveStates+1)

	for i := 0; i < bass.DefaultReceiveStates; i++ {
		c := svc.Characteristics[i]
		s.Assert().True(c.UUID.Equal(bass.ReceiveStateUUID))
		s.Assert().NotNil(c.ReadHandler)
		s.Assert().NotNil(c.NotifyHandler)
	}
	s.Assert().NotNil(svc.Characteristics[bass.DefaultReceiveStates].WriteHandler)

	s.Assert().Error(s.server.Register(s.db), "second database MUST be refused")
}

func (s *ServerTestSuite) TestRegister_ManySlots() {
	// GOAL: Verify several receive states sharing one UUID can be published
	//
	// TEST SCENARIO: database with 4 slots on a fresh server → service built →
	// 4 readable and notifiable receive states plus a writable control point

	registry := bass.NewRegistry(bass.WithISO(iso.NewLoopback()), bass.WithReceiveStates(4))
	defer registry.Shutdown()

	host := &fakeHost{}
	server := NewServer(host, nil, nil)

	var err error
	s.Require().NotPanics(func() {
		_, err = registry.AddDatabase(server, bass.Address{})
	}, "registering several slots MUST NOT panic")
	s.Require().NoError(err)

	s.Require().Len(host.services, 1)
	chars := host.services[0].Characteristics
	s.Require().Len(chars, 5)
	for i := 0; i < 4; i++ {
		s.Assert().True(chars[i].UUID.Equal(bass.ReceiveStateUUID))
		s.Assert().Equal(ble.CharRead|ble.CharNotify, chars[i].Property, "slot %d MUST be readable and notifiable", i)
	}
	s.Assert().True(chars[4].UUID.Equal(bass.ControlPointUUID))
	s.Assert().Equal(ble.CharWrite|ble.CharWriteNR, chars[4].Property)
}

func (s *ServerTestSuite) TestWriteAndRead() {
	// GOAL: Verify control point writes and slot reads go through the engine
	//
	// TEST SCENARIO: read empty slot → Add Source → read slot → decoded source →
	// read with offset → tail of the value → offset past end → Invalid Offset

	rsp := s.read(0, 0)
	s.Assert().Equal(ble.ErrSuccess, rsp.status)
	s.Assert().Empty(rsp.body)

	s.Require().Equal(ble.ErrSuccess, s.write(addSourceValue(0x123456, bass.PASyncNo, 0)))

	rsp = s.read(0, 0)
	st, err := bass.DecodeReceiveState(rsp.body)
	s.Require().NoError(err)
	s.Assert().Equal(uint32(0x123456), st.BroadcastID)

	tail := s.read(0, 4)
	s.Assert().Equal(rsp.body[4:], tail.body)

	s.Assert().Equal(ble.ErrInvalidOffset, s.read(0, len(rsp.body)+1).status)
}

func (s *ServerTestSuite) TestWriteErrors() {
	// GOAL: Verify engine results become ATT statuses
	//
	// TEST SCENARIO: truncated write → Write Request Rejected → unknown opcode →
	// Opcode Not Supported → unknown source → Invalid Source ID

	s.Assert().Equal(bass.ErrWriteRequestRejected, s.write([]byte{0x05}))
	s.Assert().Equal(bass.ErrOpcodeNotSupported, s.write([]byte{0x42}))
	s.Assert().Equal(bass.ErrInvalidSourceID, s.write([]byte{0x05, 0x09}))
}

func (s *ServerTestSuite) TestUnansweredWrite() {
	// GOAL: Verify a write the engine leaves unanswered still completes
	//
	// TEST SCENARIO: synchronized source → Remove Source → success status → source kept

	s.Require().Equal(ble.ErrSuccess, s.write(addSourceValue(1, bass.PASyncPAST, 0x01)))
	_, err := s.lb.Last().Accept(nil)
	s.Require().NoError(err)

	s.Assert().Equal(ble.ErrSuccess, s.write([]byte{0x05, 0x00}))
	s.Assert().Equal(1, s.db.Len())
}

func (s *ServerTestSuite) TestNotify() {
	// GOAL: Verify receive state changes reach the subscribed peer
	//
	// TEST SCENARIO: subscribe slot 0 → Add Source → one notification → unsubscribe →
	// subscriber count drops

	n, cancel := s.subscribe(0)

	s.Require().Equal(ble.ErrSuccess, s.write(addSourceValue(7, bass.PASyncNo, 0)))

	values := n.Values()
	s.Require().Len(values, 1)
	st, err := bass.DecodeReceiveState(values[0])
	s.Require().NoError(err)
	s.Assert().Equal(uint32(7), st.BroadcastID)

	s.server.Notify(1, []byte{0x01}, nil)
	s.Assert().Len(n.Values(), 1, "other slots MUST NOT reach this subscriber")

	cancel()
	s.Assert().Eventually(func() bool { return s.server.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *ServerTestSuite) TestNotify_RoutesToRequestingPeer() {
	// GOAL: Verify a receive state change is notified only to the peer whose
	// command caused it, and only on the source's slot
	//
	// TEST SCENARIO: peers A and B subscribe slot 0, B also slot 1 → B adds a source →
	// only B's slot 0 notifier receives it → explicit notify for A → only A's notifier

	other := &fakeConn{addr: ble.NewAddr("00:11:22:33:44:66")}

	a0, cancelA0 := s.subscribeFrom(s.peer, 0)
	defer cancelA0()
	b0, cancelB0 := s.subscribeFrom(other, 0)
	defer cancelB0()
	b1, cancelB1 := s.subscribeFrom(other, 1)
	defer cancelB1()

	s.Require().Equal(ble.ErrSuccess, s.writeFrom(other, addSourceValue(0x0B0B, bass.PASyncNo, 0)))

	s.Require().Len(b0.Values(), 1, "requesting peer MUST be notified")
	st, err := bass.DecodeReceiveState(b0.Values()[0])
	s.Require().NoError(err)
	s.Assert().Equal(uint32(0x0B0B), st.BroadcastID)
	s.Assert().Empty(a0.Values(), "other peers MUST NOT be notified")
	s.Assert().Empty(b1.Values(), "other slots MUST NOT be notified")

	s.server.Notify(0, []byte{0xAA}, s.peer)
	s.Assert().Equal([][]byte{{0xAA}}, a0.Values(), "notify for a transport MUST reach that peer")
	s.Assert().Len(b0.Values(), 1, "notify for a transport MUST NOT reach other peers")
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
