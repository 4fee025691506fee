package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/ivlev/slidecast/internal/engine"
)

// terminalPrompter asks questions on the controlling terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// newPrompter returns a terminal prompter when stdin is a terminal and
// engine.Silent otherwise, which resolves the gate to abort unless the
// configuration decides.
func newPrompter(in *bufio.Reader, out io.Writer) engine.Prompter {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return engine.Silent{}
	}
	return &terminalPrompter{in: in, out: out}
}

func (p *terminalPrompter) read() (string, bool) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(line)), true
}

func (p *terminalPrompter) Choose(question string) engine.Answer {
	fmt.Fprintf(p.out, "[?] %s [Y/n/c]: ", question)
	ans, ok := p.read()
	if !ok {
		return engine.Cancel
	}
	switch ans {
	case "", "y", "yes", "д", "да":
		return engine.Yes
	case "n", "no", "н", "нет":
		return engine.No
	default:
		return engine.Cancel
	}
}

func (p *terminalPrompter) Confirm(question string) bool {
	fmt.Fprintf(p.out, "[?] %s [Y/n]: ", question)
	ans, ok := p.read()
	if !ok {
		return false
	}
	switch ans {
	case "", "y", "yes", "д", "да":
		return true
	}
	return false
}

func (p *terminalPrompter) Input(question string) string {
	fmt.Fprintf(p.out, "[?] %s: ", question)
	ans, _ := p.read()
	return ans
}
