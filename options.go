package forkjoin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Options configures a runtime.
type Options struct {
	// NProc is the number of workers; 0 means one per online core.
	// The CILK_NWORKERS environment variable, when set, overrides it.
	NProc int

	// DeqDepth is the shadow-stack capacity per worker.
	DeqDepth int

	// StackSize is the per-fiber stack bound in bytes.
	StackSize int

	// AllocBatch is the refill batch of the internal allocator,
	// floored at 8.
	AllocBatch int
}

// DefaultOptions returns the default runtime configuration.
func DefaultOptions() Options {
	return Options{
		NProc:      0,
		DeqDepth:   1024,
		StackSize:  1 << 20,
		AllocBatch: 8,
	}
}

// ErrHelp is returned by ParseCommandLine when --help was requested.
var ErrHelp = errors.New("help requested")

// Runtime option table.  Long options only.
type optionKind int

const (
	optEnd optionKind = iota
	optNProc
	optDeqDepth
	optStackSize
	optAllocBatch
	optHelp
)

var optionTable = []struct {
	name string
	kind optionKind
	help string
}{
	{"nproc", optNProc, "--nproc <n> : set number of workers (0 = all online cores)"},
	{"deqdepth", optDeqDepth, "--deqdepth <n> : set number of entries per deque"},
	{"stacksize", optStackSize, "--stacksize <n> : set the size of a fiber"},
	{"alloc-batch", optAllocBatch, "--alloc-batch <n> : set batch length for memory allocator"},
	{"help", optHelp, "--help : print this message"},
	{"", optEnd, "-- : end of option parsing"},
}

// PrintUsage writes the runtime option summary.
func PrintUsage(out io.Writer) {
	fmt.Fprintf(out, "forkjoin runtime options:\n")
	for _, opt := range optionTable {
		fmt.Fprintf(out, "     %s\n", opt.help)
	}
	fmt.Fprintf(out, "\n")
}

// ParseCommandLine extracts the runtime options from args and returns
// the parsed options along with the arguments that belong to the
// program.  The first element of args is taken to be the program name
// and passed through.  Unknown long options are an error; "--" ends
// option parsing.
func ParseCommandLine(args []string) (Options, []string, error) {
	opts := DefaultOptions()
	rest := make([]string, 0, len(args))
	if len(args) > 0 {
		rest = append(rest, args[0])
	}

	needValue := func(i int, name string) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("bad option argument for --%s: argument missing", name)
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return 0, fmt.Errorf("bad option argument for --%s: %q", name, args[i+1])
		}
		return n, nil
	}

	for i := 1; i < len(args); i++ {
		arg := args[i]
		if len(arg) < 2 || arg[0] != '-' || arg[1] != '-' {
			rest = append(rest, arg)
			continue
		}
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}

		kind := optEnd
		found := false
		for _, opt := range optionTable {
			if opt.name != "" && arg[2:] == opt.name {
				kind = opt.kind
				found = true
				break
			}
		}
		if !found {
			return opts, nil, fmt.Errorf("unrecognized option %q", arg)
		}

		switch kind {
		case optNProc:
			n, err := needValue(i, "nproc")
			if err != nil {
				return opts, nil, err
			}
			opts.NProc = n
			i++

		case optDeqDepth:
			n, err := needValue(i, "deqdepth")
			if err != nil {
				return opts, nil, err
			}
			if n <= 0 {
				return opts, nil, fmt.Errorf("bad option argument for --deqdepth: non-positive deque depth")
			}
			opts.DeqDepth = n
			i++

		case optStackSize:
			n, err := needValue(i, "stacksize")
			if err != nil {
				return opts, nil, err
			}
			if n <= 0 {
				return opts, nil, fmt.Errorf("bad option argument for --stacksize: non-positive stack size")
			}
			opts.StackSize = n
			i++

		case optAllocBatch:
			n, err := needValue(i, "alloc-batch")
			if err != nil {
				return opts, nil, err
			}
			if n < 8 {
				n = 8
			}
			opts.AllocBatch = n
			i++

		case optHelp:
			return opts, nil, ErrHelp
		}
	}
	return opts, rest, nil
}

// resolve validates the options and fills in the effective worker
// count.
func (o Options) resolve() (Options, error) {
	if v := os.Getenv("CILK_NWORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return o, fmt.Errorf("invalid CILK_NWORKERS value %q", v)
		}
		o.NProc = n
	}
	if o.NProc == 0 {
		o.NProc = onlineCPUs()
	}
	if o.NProc <= 0 {
		return o, fmt.Errorf("invalid worker count %d", o.NProc)
	}
	if o.DeqDepth <= 0 {
		return o, fmt.Errorf("invalid deque depth %d", o.DeqDepth)
	}
	if o.StackSize <= 0 {
		return o, fmt.Errorf("invalid stack size %d", o.StackSize)
	}
	if o.AllocBatch < 8 {
		o.AllocBatch = 8
	}
	return o, nil
}
