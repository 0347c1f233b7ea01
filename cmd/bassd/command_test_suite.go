//go:build test

package main

import (
	"bytes"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs bassd commands against fresh command trees.
// All cmd/bassd test suites should embed it.
type CommandTestSuite struct {
	suite.Suite

	Helper *testutils.TestHelper
	Logger *logrus.Logger
}

func (s *CommandTestSuite) SetupTest() {
	s.Helper = testutils.NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
}

// ExecuteCommand runs the root command with args, returns stdout and stderr and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	root := newRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// NewOutputCommand returns a bare command writing to fresh buffers.
func (s *CommandTestSuite) NewOutputCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd, out, errOut
}
