// Command threadinfo prints the parallel dispatch configuration of this
// machine.
//
// Usage:
//
//	threadinfo [flags]
//
// It initializes the threads package, then prints the detected CPU topology,
// the resulting attributes and any requested partition plans.
//
// Examples:
//
//	threadinfo
//	threadinfo -backend serial
//	threadinfo -maxprocs 2 -plan 5:4 -plan 100:8
//	threadinfo -bench 512
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/klauspost/cpuid/v2"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-threads/dsp/fft"
	"github.com/cwbudde/algo-threads/internal/cpu"
	"github.com/cwbudde/algo-threads/threads"
	"github.com/cwbudde/algo-threads/threads/partition"
)

// planRequest is one -plan loopmax:nthr argument.
type planRequest struct {
	loopmax int
	nthr    int
}

// planFlags collects repeated -plan flags.
type planFlags []planRequest

func (p *planFlags) String() string {
	parts := make([]string, len(*p))
	for i, r := range *p {
		parts[i] = fmt.Sprintf("%d:%d", r.loopmax, r.nthr)
	}
	return strings.Join(parts, ",")
}

func (p *planFlags) Set(s string) error {
	lm, nt, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("want loopmax:nthr, got %q", s)
	}
	loopmax, err := strconv.Atoi(lm)
	if err != nil || loopmax <= 0 {
		return fmt.Errorf("invalid loopmax %q", lm)
	}
	nthr, err := strconv.Atoi(nt)
	if err != nil || nthr <= 0 {
		return fmt.Errorf("invalid nthr %q", nt)
	}
	*p = append(*p, planRequest{loopmax: loopmax, nthr: nthr})
	return nil
}

const benchSize = 1024

func main() {
	backend := flag.String("backend", "", "threading backend (default: "+threads.EnvBackend+" or highest priority)")
	maxProcs := flag.Int("maxprocs", 0, "GOMAXPROCS to establish (0: usable CPUs)")
	verbose := flag.Bool("v", false, "log initialization with a development logger")
	bench := flag.Int("bench", 0, fmt.Sprintf("time a batch of N %d-point FFTs", benchSize))
	var plans planFlags
	flag.Var(&plans, "plan", "print the partition of loopmax:nthr (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: threadinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints CPU topology, thread attributes and loop partitions.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  threadinfo -backend serial\n")
		fmt.Fprintf(os.Stderr, "  threadinfo -plan 5:4 -plan 100:8\n")
		fmt.Fprintf(os.Stderr, "  threadinfo -bench 512\n")
	}
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	opts := []threads.Option{threads.WithLogger(logger), threads.WithMaxProcs(*maxProcs)}
	if *backend != "" {
		opts = append(opts, threads.WithBackend(*backend))
	}

	err := threads.Init(opts...)
	switch {
	case err == nil:
	case errors.Is(err, threads.ErrThreadsUnsupported):
		fmt.Fprintf(os.Stderr, "note: %v, loops run on the calling goroutine\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printTopology(cpu.DetectTopology())
	printAttributes()

	for _, p := range plans {
		printPlan(p)
	}

	if *bench > 0 {
		if err := runBench(*bench); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printTopology(t cpu.Topology) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Topology\n")
	fmt.Fprintf(tw, "  CPU\t%s\n", t.Brand)
	fmt.Fprintf(tw, "  Architecture\t%s\n", t.Architecture)
	fmt.Fprintf(tw, "  Logical CPUs\t%d\n", t.LogicalCPUs)
	fmt.Fprintf(tw, "  Usable CPUs\t%d\n", t.UsableCPUs)
	fmt.Fprintf(tw, "  Physical cores\t%d\n", t.PhysicalCores)
	fmt.Fprintf(tw, "  Threads/core\t%d\n", t.ThreadsPerCore)
	fmt.Fprintf(tw, "  Cache line\t%d\n", t.CacheLine)
	fmt.Fprintf(tw, "  Features\t%s\n", strings.Join(cpuid.CPU.FeatureSet(), " "))
	_ = tw.Flush()
	fmt.Println()
}

func printAttributes() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Threads\n")
	attr, ok := threads.CurrentAttributes()
	if !ok {
		fmt.Fprintf(tw, "  (not initialized)\n")
		_ = tw.Flush()
		fmt.Println()
		return
	}
	caps := threads.CurrentCapabilities()
	fmt.Fprintf(tw, "  Backend\t%s\n", attr.Backend)
	fmt.Fprintf(tw, "  Threaded\t%t\n", caps.Threaded)
	fmt.Fprintf(tw, "  Joinable\t%t\n", attr.Joinable)
	fmt.Fprintf(tw, "  System scope\t%t\n", attr.SystemScope)
	fmt.Fprintf(tw, "  GOMAXPROCS\t%d\n", attr.MaxProcs)
	fmt.Fprintf(tw, "  Changed\t%t\n", attr.Changed)
	fmt.Fprintf(tw, "  Max workers\t%d\n", caps.MaxWorkers)
	_ = tw.Flush()
	fmt.Println()
}

func printPlan(p planRequest) {
	blockSize, workers := partition.Plan(p.loopmax, p.nthr)

	fmt.Printf("Plan loopmax=%d nthr=%d: block=%d workers=%d critical=%d\n",
		p.loopmax, p.nthr, blockSize, workers, partition.CriticalPath(p.loopmax, p.nthr))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ThrNum\tMin\tMax\tLen\tRuns on\t\n")
	for i, s := range partition.Split(p.loopmax, p.nthr) {
		where := "spawned"
		if i == workers-1 {
			where = "caller"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t\n", i, s.Lo, s.Hi, s.Len(), where)
	}
	_ = tw.Flush()
	fmt.Println()
}

func runBench(howmany int) error {
	src := make([]complex128, benchSize*howmany)
	for i := range src {
		src[i] = complex(float64(i%17)-8, float64(i%5)-2)
	}
	dst := make([]complex128, len(src))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Workers\tTime\tSpeedup\t\n")

	var base time.Duration
	for _, workers := range []int{1, threads.CurrentCapabilities().MaxWorkers} {
		b, err := fft.NewBatch(benchSize, howmany, fft.WithWorkers(workers))
		if err != nil {
			return err
		}

		// Warm up plans and scratch before timing.
		if err := b.Forward(dst, src); err != nil {
			return err
		}

		start := time.Now()
		if err := b.Forward(dst, src); err != nil {
			return err
		}
		elapsed := time.Since(start)
		if base == 0 {
			base = elapsed
		}
		fmt.Fprintf(tw, "%d\t%v\t%.2fx\t\n", b.Workers(), elapsed, float64(base)/float64(max(elapsed, 1)))
	}
	return tw.Flush()
}
