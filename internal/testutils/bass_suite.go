//go:build test

package testutils

import (
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/iso"
	"github.com/srg/bass/internal/testutils/mocks"
	"github.com/stretchr/testify/suite"
)

// BASSSuite provides a registry wired to an in-process ISO loopback and a
// recording attribute database. Callbacks run inline, so every engine effect
// is visible as soon as the triggering call returns.
//
// Embedding suites may set Slots before calling BASSSuite.SetupTest.
type BASSSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	Slots   int
	Adapter bass.Address

	ISO      *iso.Loopback
	Attrib   *mocks.AttributeDB
	Registry *bass.Registry
	Events   []bass.SourceEvent
}

func (s *BASSSuite) SetupTest() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger

	if s.Slots == 0 {
		s.Slots = bass.DefaultReceiveStates
	}

	s.ISO = iso.NewLoopback()
	s.Attrib = &mocks.AttributeDB{}
	s.Events = nil
	s.Registry = bass.NewRegistry(
		bass.WithLogger(s.Logger),
		bass.WithISO(s.ISO),
		bass.WithReceiveStates(s.Slots),
		bass.WithSourceObserver(func(ev bass.SourceEvent) {
			s.Events = append(s.Events, ev)
		}),
	)
}

func (s *BASSSuite) TearDownTest() {
	s.Registry.Shutdown()
	s.Slots = 0
}

// Local returns the local database on Attrib, creating it on first use.
func (s *BASSSuite) Local() *bass.Database {
	d, err := s.Registry.AddDatabase(s.Attrib, s.Adapter)
	s.Require().NoError(err, "local database MUST be created")
	return d
}

// WriteRaw writes value to the control point and returns every reply.
func (s *BASSSuite) WriteRaw(t bass.Transport, value []byte, withResponse bool) []ble.ATTError {
	var replies []ble.ATTError
	s.Local().WriteControlPoint(t, value, withResponse, func(code ble.ATTError) {
		replies = append(replies, code)
	})
	return replies
}

// Write encodes cmd and writes it to the control point.
func (s *BASSSuite) Write(t bass.Transport, cmd bass.Command, withResponse bool) []ble.ATTError {
	return s.WriteRaw(t, cmd.Encode(), withResponse)
}

// EventsOf filters recorded source events by kind.
func (s *BASSSuite) EventsOf(kind bass.SourceEventKind) []bass.SourceEvent {
	var out []bass.SourceEvent
	for _, ev := range s.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
