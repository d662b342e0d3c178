package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Credentials struct {
	APIKey    string
	APISecret string
}

// String keeps credentials out of logs and panics.
func (c Credentials) String() string {
	return "Credentials{APIKey:<redacted>, APISecret:<redacted>}"
}

// Prompter asks for whatever credential is missing. The secret is read
// without echo when In is a terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *Prompter) Complete(c Credentials) (Credentials, error) {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APISecret = strings.TrimSpace(c.APISecret)
	if c.APIKey != "" && c.APISecret != "" {
		return c, nil
	}

	r := bufio.NewReader(p.In)
	if c.APIKey == "" {
		_, _ = fmt.Fprint(p.Out, "API key: ")
		key, err := readLine(r)
		if err != nil {
			return c, fmt.Errorf("read api key: %w", err)
		}
		c.APIKey = key
	}
	if c.APISecret == "" {
		_, _ = fmt.Fprint(p.Out, "API secret: ")
		secret, err := p.readSecret(r)
		if err != nil {
			return c, fmt.Errorf("read api secret: %w", err)
		}
		c.APISecret = secret
	}

	if c.APIKey == "" || c.APISecret == "" {
		return c, errors.New("api key and secret are required")
	}
	return c, nil
}

func (p *Prompter) readSecret(r *bufio.Reader) (string, error) {
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(r)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
