package RSClientGo

import "fmt"

// Selector picks one of several options, returning its index
// Interactive callers can prompt a user, headless callers can decide programmatically
type Selector interface {
	Choose(options []string) (int, error)
}

// always picks the same index
type StaticSelector int

func (s StaticSelector) Choose(options []string) (int, error) {
	if int(s) < 0 || int(s) >= len(options) {
		return 0, fmt.Errorf("static choice %d out of range for %d options", int(s), len(options))
	}
	return int(s), nil
}

type SelectorFunc func(options []string) (int, error)

func (f SelectorFunc) Choose(options []string) (int, error) {
	return f(options)
}
