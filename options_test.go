package forkjoin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// OptionsTestSuite covers the command-line parser and option
// resolution.
type OptionsTestSuite struct {
	suite.Suite
}

func TestOptionsTestSuite(t *testing.T) {
	suite.Run(t, new(OptionsTestSuite))
}

func (ts *OptionsTestSuite) TestDefaults() {
	opts := DefaultOptions()

	ts.Equal(0, opts.NProc)
	ts.Equal(1024, opts.DeqDepth)
	ts.Equal(1<<20, opts.StackSize)
	ts.Equal(8, opts.AllocBatch)
}

func (ts *OptionsTestSuite) TestParseAllFlags() {
	opts, rest, err := ParseCommandLine([]string{
		"prog", "--nproc", "4", "--deqdepth", "64",
		"--stacksize", "65536", "--alloc-batch", "16", "input.txt",
	})

	ts.NoError(err)
	ts.Equal(4, opts.NProc)
	ts.Equal(64, opts.DeqDepth)
	ts.Equal(65536, opts.StackSize)
	ts.Equal(16, opts.AllocBatch)
	ts.Equal([]string{"prog", "input.txt"}, rest)
}

func (ts *OptionsTestSuite) TestProgramArgsPassThrough() {
	opts, rest, err := ParseCommandLine([]string{"prog", "30", "--nproc", "2"})

	ts.NoError(err)
	ts.Equal(2, opts.NProc)
	ts.Equal([]string{"prog", "30"}, rest)
}

func (ts *OptionsTestSuite) TestDoubleDashEndsOptions() {
	opts, rest, err := ParseCommandLine([]string{"prog", "--nproc", "2", "--", "--deqdepth", "9"})

	ts.NoError(err)
	ts.Equal(2, opts.NProc)
	ts.Equal(1024, opts.DeqDepth)
	ts.Equal([]string{"prog", "--deqdepth", "9"}, rest)
}

func (ts *OptionsTestSuite) TestHelp() {
	_, _, err := ParseCommandLine([]string{"prog", "--help"})
	ts.ErrorIs(err, ErrHelp)
}

func (ts *OptionsTestSuite) TestUnknownOption() {
	_, _, err := ParseCommandLine([]string{"prog", "--bogus"})
	ts.Error(err)
	ts.Contains(err.Error(), "bogus")
}

func (ts *OptionsTestSuite) TestMissingValue() {
	_, _, err := ParseCommandLine([]string{"prog", "--nproc"})
	ts.Error(err)
	ts.Contains(err.Error(), "argument missing")
}

func (ts *OptionsTestSuite) TestBadDeqDepth() {
	_, _, err := ParseCommandLine([]string{"prog", "--deqdepth", "0"})
	ts.Error(err)
	ts.Contains(err.Error(), "deque depth")
}

func (ts *OptionsTestSuite) TestBadStackSize() {
	_, _, err := ParseCommandLine([]string{"prog", "--stacksize", "-1"})
	ts.Error(err)
}

func (ts *OptionsTestSuite) TestAllocBatchFloor() {
	opts, _, err := ParseCommandLine([]string{"prog", "--alloc-batch", "2"})
	ts.NoError(err)
	ts.Equal(8, opts.AllocBatch)
}

func (ts *OptionsTestSuite) TestResolveWorkerCount() {
	ts.T().Setenv("CILK_NWORKERS", "")

	opts := DefaultOptions()
	resolved, err := opts.resolve()
	ts.NoError(err)
	ts.Greater(resolved.NProc, 0)
}

func (ts *OptionsTestSuite) TestEnvOverridesFlag() {
	ts.T().Setenv("CILK_NWORKERS", "3")

	opts := DefaultOptions()
	opts.NProc = 7
	resolved, err := opts.resolve()
	ts.NoError(err)
	ts.Equal(3, resolved.NProc)
}

func (ts *OptionsTestSuite) TestBadEnv() {
	ts.T().Setenv("CILK_NWORKERS", "zero")

	opts := DefaultOptions()
	_, err := opts.resolve()
	ts.Error(err)
}

func (ts *OptionsTestSuite) TestUsageListsAllOptions() {
	var sb strings.Builder
	PrintUsage(&sb)
	out := sb.String()
	for _, name := range []string{"--nproc", "--deqdepth", "--stacksize", "--alloc-batch", "--help"} {
		ts.Contains(out, name)
	}
}
