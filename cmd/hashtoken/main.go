package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minTokenLength = 16

var (
	errMismatch = errors.New("tokens do not match")
	errTooShort = fmt.Errorf("token must be at least %d characters", minTokenLength)
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "hash":
		if !runHash() {
			os.Exit(1)
		}
	case "verify":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: verify needs the hash to check against")
			os.Exit(1)
		}
		if !runVerify(os.Args[2]) {
			os.Exit(1)
		}
	default:
		// Sanitize command input using allowlist to break taint chain
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage(os.Stdout)
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "mp4-creator API token tool")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hashtoken <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  hash           - Read a token and print its bcrypt hash for API_TOKEN_HASH")
	fmt.Fprintln(w, "  verify <hash>  - Read a token and check it against a hash")
}

func readToken(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return token, err
}

func runHash() bool {
	token, err := readToken("Token: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}
	confirm, err := readToken("Confirm Token: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	hash, err := hashToken(token, confirm, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Println(hash)
	return true
}

func runVerify(hash string) bool {
	token, err := readToken("Token: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	if err := verifyToken(hash, token); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	fmt.Println("Token matches.")
	return true
}

// hashToken validates the entered token and returns its bcrypt hash.
func hashToken(token, confirm []byte, cost int) (string, error) {
	if !bytes.Equal(token, confirm) {
		return "", errMismatch
	}
	if len(bytes.TrimSpace(token)) < minTokenLength {
		return "", errTooShort
	}

	hash, err := bcrypt.GenerateFromPassword(token, cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

func verifyToken(hash string, token []byte) error {
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(hash)), token); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("token does not match")
		}
		return fmt.Errorf("invalid hash: %w", err)
	}
	return nil
}
