//go:build test

package main

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/srg/bass/internal/bass"
	"github.com/stretchr/testify/suite"
)

type CommandEncodeTestSuite struct {
	CommandTestSuite
}

func (s *CommandEncodeTestSuite) run(args ...string) string {
	out, _, err := s.ExecuteCommand(append([]string{"command"}, args...)...)
	s.Require().NoError(err, "command MUST succeed")
	return strings.TrimSpace(out)
}

func (s *CommandEncodeTestSuite) TestAddSource() {
	// GOAL: Verify add-source flags map onto the Add Source encoding
	//
	// TEST SCENARIO: flags for two subgroups with metadata on the first → hex equals the encoded command

	out := s.run("add-source",
		"--addr", "C0:FF:EE:00:00:01",
		"--addr-type", "random",
		"--sid", "3",
		"--broadcast-id", "0x123456",
		"--pa-sync", "past",
		"--pa-interval", "100",
		"--bis", "0x3,any",
		"--metadata", "03020400",
	)

	want := bass.AddSourceCommand{
		AddrType:    bass.AddrRandom,
		Addr:        bass.MustParseAddress("C0:FF:EE:00:00:01"),
		SID:         3,
		BroadcastID: 0x123456,
		PASync:      bass.PASyncPAST,
		PAInterval:  100,
		Subgroups: []bass.SubgroupParams{
			{BISSync: 0x03, Metadata: bass.Metadata{0x03, 0x02, 0x04, 0x00}},
			{BISSync: bass.BISSyncNoPreference},
		},
	}
	s.Assert().Equal(hex.EncodeToString(want.Encode()), out)
}

func (s *CommandEncodeTestSuite) TestAddSource_Invalid() {
	// GOAL: Verify invalid add-source flags are rejected
	//
	// TEST SCENARIO: each bad flag set → error naming the problem

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing addr", args: []string{"--broadcast-id", "1"}, want: "addr"},
		{name: "bad addr", args: []string{"--addr", "nope", "--broadcast-id", "1"}, want: "invalid bluetooth address"},
		{name: "wide broadcast id", args: []string{"--addr", "00:00:00:00:00:01", "--broadcast-id", "0x1000000"}, want: "24 bits"},
		{name: "bad pa sync", args: []string{"--addr", "00:00:00:00:00:01", "--broadcast-id", "1", "--pa-sync", "maybe"}, want: "invalid pa sync"},
		{name: "bad addr type", args: []string{"--addr", "00:00:00:00:00:01", "--broadcast-id", "1", "--addr-type", "static"}, want: "invalid address type"},
		{name: "bad mask", args: []string{"--addr", "00:00:00:00:00:01", "--broadcast-id", "1", "--bis", "x"}, want: "invalid BIS mask"},
		{name: "orphan metadata", args: []string{"--addr", "00:00:00:00:00:01", "--broadcast-id", "1", "--metadata", "00"}, want: "metadata"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, _, err := s.ExecuteCommand(append([]string{"command", "add-source"}, tt.args...)...)
			s.Require().Error(err)
			s.Assert().Contains(err.Error(), tt.want)
		})
	}
}

func (s *CommandEncodeTestSuite) TestSimpleCommands() {
	// GOAL: Verify the single-byte and two-byte commands
	//
	// TEST SCENARIO: remove-source 7 → 0507 → scan-start → 01 → scan-stop → 00 → remove-source 256 → error

	s.Assert().Equal("0507", s.run("remove-source", "7"))
	s.Assert().Equal("05ff", s.run("remove-source", "0xff"))
	s.Assert().Equal("01", s.run("scan-start"))
	s.Assert().Equal("00", s.run("scan-stop"))

	_, _, err := s.ExecuteCommand("command", "remove-source", "256")
	s.Assert().ErrorContains(err, "invalid source id")
}

func TestCommandEncodeTestSuite(t *testing.T) {
	suite.Run(t, new(CommandEncodeTestSuite))
}
