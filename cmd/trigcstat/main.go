// Copyright 2026 The trigc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command trigcstat is a small interactive viewer over a running collector:
// it redraws a panel of arena occupancy, gray-queue depth, and scheduler
// phase once per step, until 'q' is pressed. Grounded on
// internal/tools/test2/exec.go's use of golang.org/x/term for raw-mode
// terminal interaction (SPEC_FULL.md §10.7); this is the one place
// golang.org/x/term earns a home, off the collector's hot path entirely.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/term"

	trigc "github.com/vmthings/trigc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "trigcstat:", err)
		os.Exit(1)
	}
}

func run() error {
	s, err := trigc.NewState()
	if err != nil {
		return fmt.Errorf("construct state: %w", err)
	}

	fd := int(os.Stdin.Fd())
	quit := make(chan struct{})
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
		go watchQuit(quit)
	} else {
		// Not an interactive terminal (e.g. piped output in a test harness):
		// run a bounded number of frames instead of waiting for a keypress.
		go func() {
			time.Sleep(2 * time.Second)
			close(quit)
		}()
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			fmt.Print("\r\n")
			return nil
		case <-ticker.C:
			s.Step()
			render(s)
		}
	}
}

// watchQuit reads raw keystrokes from stdin and closes quit on 'q' or
// Ctrl-C, since raw mode disables the terminal's own line discipline.
func watchQuit(quit chan struct{}) {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			close(quit)
			return
		}
		if b == 'q' || b == 3 {
			close(quit)
			return
		}
	}
}

// render redraws the panel in place using a "clear to end of screen" ANSI
// escape, so successive frames overwrite rather than scroll.
func render(s *trigc.State) {
	fmt.Print("\x1b[H\x1b[2J")
	fmt.Printf("trigc collector — phase: %s\r\n\r\n", s.Phase())

	fmt.Print("arenas (occupied/capacity):\r\n")
	occ := s.ArenaOccupancy()
	names := make([]string, 0, len(occ))
	for k := range occ {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		v := occ[k]
		fmt.Printf("  %-14s %6d / %-6d\r\n", k, v[1], v[0])
	}

	fmt.Print("\r\ngray queues pending:\r\n")
	gray := s.GrayQueueDepth()
	names = names[:0]
	for k := range gray {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("  %-14s %v\r\n", k, gray[k])
	}

	stepCost, pause := s.Stats()
	fmt.Printf("\r\nstep cost (median ns): %.0f   pause (median ns): %.0f\r\n", stepCost, pause)
	fmt.Print("\r\npress q to quit\r\n")
}
