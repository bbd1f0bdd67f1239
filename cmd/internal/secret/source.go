package secret

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a shared secret from a flag value, an environment variable
// or an interactive prompt, in that order. The first successful value is
// cached.
type Source struct {
	envVar string
	prompt string

	// hooks for tests
	isTerminal   func() bool
	readPassword func() ([]byte, error)
	stderr       io.Writer

	once  sync.Once
	value string
	err   error
}

func NewSource(envVar, prompt string) *Source {
	fd := int(os.Stdin.Fd())
	return &Source{
		envVar:       strings.TrimSpace(envVar),
		prompt:       prompt,
		isTerminal:   func() bool { return term.IsTerminal(fd) },
		readPassword: func() ([]byte, error) { return term.ReadPassword(fd) },
		stderr:       os.Stderr,
	}
}

// Get returns explicit when it is non-empty, otherwise the environment value
// or a prompted one.
func (s *Source) Get(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = strings.TrimSpace(value)
				return
			}
		}

		if !s.isTerminal() {
			if s.envVar != "" {
				s.err = fmt.Errorf("secret required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("secret required and no terminal available")
			}
			return
		}

		fmt.Fprint(s.stderr, s.prompt)
		raw, err := s.readPassword()
		fmt.Fprintln(s.stderr)
		if err != nil {
			s.err = fmt.Errorf("failed to read secret: %w", err)
			return
		}
		value := strings.TrimSpace(string(raw))
		if value == "" {
			s.err = errors.New("secret cannot be empty")
			return
		}
		s.value = value
	})
	return s.value, s.err
}
