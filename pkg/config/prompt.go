package config

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PasswordPrompter obtains a password from the operator.
type PasswordPrompter interface {
	Password(prompt string) (string, error)
}

// TerminalPrompter reads from stdin with echo disabled.
type TerminalPrompter struct{}

func (TerminalPrompter) Password(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pwd), nil
}
