package commands

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	RSClientGo "github.com/risksense/RSClientGo"
)

// promptSelector lists the options on out and reads a 1-based choice from in
type promptSelector struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptSelector(in io.Reader, out io.Writer) RSClientGo.Selector {
	return &promptSelector{in: bufio.NewReader(in), out: out}
}

func (p *promptSelector) Choose(options []string) (int, error) {
	fmt.Fprintln(p.out, "Several clients are accessible, choose one:")
	for id, option := range options {
		fmt.Fprintf(p.out, "  %d) %v\n", id+1, option)
	}

	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprintf(p.out, "Client [1-%d]: ", len(options))
		line, err := p.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err != nil {
			return 0, fmt.Errorf("no client chosen: %w", err)
		}

		choice, convErr := strconv.Atoi(line)
		if convErr == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, nil
		}
		fmt.Fprintf(p.out, "'%v' is not a number between 1 and %d\n", line, len(options))
		if err != nil {
			return 0, fmt.Errorf("no valid client chosen: %w", err)
		}
	}
	return 0, fmt.Errorf("no valid client chosen after 3 attempts")
}
