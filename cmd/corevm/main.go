// Command corevm is a small embedding demo for the vm/compiler/gc
// packages: it compiles one of a handful of hand-assembled programs
// (see programs.go), wires whatever classes/functions/names it needs
// onto a fresh vm.VM, and runs it, the same register-then-run sequence
// any embedder follows.
//
// Grounded on the teacher's cmd/langlang/main.go: a flag-described
// pipeline that can stop early at an -ast-only/-asm-only dump, drop
// into an -interactive REPL, or run a file's contents, one Match per
// line read from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mxphp/corevm/config"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
	"github.com/mxphp/corevm/vm"
)

type args struct {
	demo    *string
	arg     *int64
	asmOnly *bool

	interactive *bool
	inputPath   *string

	trace *bool
}

func readArgs() *args {
	a := &args{
		demo:        flag.String("demo", "counter", "Which demo program to run: counter, point, calldouble"),
		arg:         flag.Int64("arg", 10, "Integer argument passed to the demo's single parameter"),
		asmOnly:     flag.Bool("asm-only", false, "Print the demo's disassembly instead of running it"),
		interactive: flag.Bool("interactive", false, "Drop into a shell reading one integer argument per line"),
		inputPath:   flag.String("input", "", "Path to a file of newline-separated integer arguments to run in sequence"),
		trace:       flag.Bool("trace", false, "Print recoverable diagnostics collected during the run"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()

	build, ok := programs[*a.demo]
	if !ok {
		names := make([]string, 0, len(programs))
		for name := range programs {
			names = append(names, name)
		}
		sort.Strings(names)
		log.Fatalf("unknown demo %q, available: %s", *a.demo, strings.Join(names, ", "))
	}

	prog, err := build()
	if err != nil {
		log.Fatal(err)
	}

	if *a.asmOnly {
		fmt.Println(prog.fn.HighlightPrettyString())
		return
	}

	cfg := config.NewDefault()
	mm := gc.NewMemoryManager(cfg)
	sink := diag.NewMemorySink()
	m := vm.New(mm, cfg, sink)
	if prog.wire != nil {
		prog.wire(m)
	}

	run := func(n int64) {
		sink.Reset()
		result, err := m.Call(prog.fn, []value.Value{value.Int(n)})
		if err != nil {
			fmt.Println(prog.name + ": ERROR: " + err.Error())
		} else {
			fmt.Println(prog.name + ": " + result.ToStringValue())
		}
		if *a.trace {
			for _, r := range sink.Records() {
				fmt.Println("  " + r.String())
			}
		}
	}

	if *a.interactive {
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("> ")
			text, err := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" && err != nil {
				fmt.Println("")
				break
			}
			if text == "" {
				continue
			}
			n, convErr := strconv.ParseInt(text, 10, 64)
			if convErr != nil {
				fmt.Println("ERROR: not an integer: " + text)
				continue
			}
			run(n)
		}
		return
	}

	if *a.inputPath != "" {
		data, err := os.ReadFile(*a.inputPath)
		if err != nil {
			log.Fatalf("can't open input file: %s", err.Error())
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			n, convErr := strconv.ParseInt(line, 10, 64)
			if convErr != nil {
				fmt.Println("ERROR: not an integer: " + line)
				continue
			}
			run(n)
		}
		return
	}

	run(*a.arg)
}
