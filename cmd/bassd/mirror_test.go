//go:build test

package main

import (
	"context"
	"testing"

	"github.com/go-ble/ble"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/testutils"
	"github.com/srg/bass/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func handleMatcher(h uint16) any {
	return mock.MatchedBy(func(c *ble.Characteristic) bool { return c.ValueHandle == h })
}

type MirrorCommandTestSuite struct {
	CommandTestSuite
	client *mocks.MockRemoteClient
}

func (s *MirrorCommandTestSuite) SetupTest() {
	s.CommandTestSuite.SetupTest()

	st := sampleState()
	s.client = &mocks.MockRemoteClient{}
	s.client.On("Transport").Return(mocks.NewTransport("11:22:33:44:55:66"))
	s.client.On("Services").Return(mocks.NewBASSProfile(0x20, 0x11, 0x14))
	s.client.On("Read", handleMatcher(0x11)).Return(st.Encode(), nil)
	s.client.On("Read", handleMatcher(0x14)).Return(nil, nil)
	s.client.On("Subscribe", mock.Anything).Return(nil)
	s.client.On("Unsubscribe", mock.Anything).Return(nil).Maybe()
}

func (s *MirrorCommandTestSuite) TestOnce() {
	// GOAL: Verify --once prints the initially read receive states
	//
	// TEST SCENARIO: two receive states, one occupied → one source block printed →
	// discovered characteristics listed on stderr

	cmd, out, errOut := s.NewOutputCommand()

	err := runMirror(context.Background(), cmd, s.client, nil, s.Logger, 8, true)
	s.Require().NoError(err, "mirror MUST succeed")

	testutils.NewTextAsserter(s.T()).Assert(out.String(), `
Source 1  broadcast_id=0x123456  addr=C0:FF:EE:00:00:01 (public)  sid=2
  pa_sync: synchronized  encryption: not encrypted
  subgroup 0: bis_sync=0x00000003 metadata=03020400
  subgroup 1: bis_sync=failed metadata=-
`)
	s.Assert().Contains(errOut.String(), "Broadcast Receive State at handle 0x0011")
	s.Assert().Contains(errOut.String(), "Broadcast Audio Scan Control Point at handle 0x0020")
	s.client.AssertNumberOfCalls(s.T(), "Unsubscribe", 2)
}

func (s *MirrorCommandTestSuite) TestFollow_ConnectionLost() {
	// GOAL: Verify followed changes are printed until the link drops
	//
	// TEST SCENARIO: link already down → initial source printed as added →
	// teardown prints the removal → ErrConnectionLost

	cmd, out, _ := s.NewOutputCommand()
	disconnected := make(chan struct{})
	close(disconnected)

	err := runMirror(context.Background(), cmd, s.client, disconnected, s.Logger, 8, false)
	s.Assert().ErrorIs(err, ErrConnectionLost)

	s.Assert().Contains(out.String(), "[added] handle 0x0011 session ")
	s.Assert().Contains(out.String(), "Source 1  broadcast_id=0x123456")
	s.Assert().Contains(out.String(), "[removed] handle 0x0011")
}

func (s *MirrorCommandTestSuite) TestSendThroughMirror() {
	// GOAL: Verify a command reaches the remote control point through a mirror session
	//
	// TEST SCENARIO: attach mirror → SendCommand scan-start → control point written with response

	s.client.On("Write", handleMatcher(0x20), []byte{0x01}, true).Return(nil).Once()

	m, err := attachMirror(context.Background(), s.client, s.Logger, nil)
	s.Require().NoError(err)
	defer m.Close()

	s.Require().NoError(m.session.SendCommand(bass.RemoteScanCommand{Started: true}, true))
	s.client.AssertExpectations(s.T())
}

func TestMirrorCommandTestSuite(t *testing.T) {
	suite.Run(t, new(MirrorCommandTestSuite))
}
