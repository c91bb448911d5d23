package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassphrase returns $IDS_PASSPHRASE when set, otherwise prompts on the
// terminal without echo. confirm asks for the passphrase twice.
func readPassphrase(prompt string, confirm bool) (string, error) {
	if p := os.Getenv("IDS_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("passphrase required: set IDS_PASSPHRASE or run from a terminal")
	}

	first, err := promptHidden(fd, prompt)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	if !confirm {
		return first, nil
	}

	second, err := promptHidden(fd, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

func promptHidden(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
