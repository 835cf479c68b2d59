// Package prompt asks the questions of `cazan init --interactive`.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aeliadev/cazan/internal/config"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// ErrAborted indicates the user interrupted the prompt.
var ErrAborted = errors.New("prompt: aborted")

// maxAttempts bounds re-asking after invalid answers.
const maxAttempts = 3

// Asker reads one answer. An empty answer selects def.
type Asker interface {
	Ask(label, def string) (string, error)
}

// Readline is an Asker backed by a readline instance.
type Readline struct {
	rl *readline.Instance
}

// NewReadline creates a prompt reading from in and echoing to out.
func NewReadline(in io.ReadCloser, out io.Writer) (*Readline, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:             in,
		Stdout:            out,
		InterruptPrompt:   "^C",
		HistoryLimit:      -1,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Readline{rl: rl}, nil
}

// Ask implements Asker. Ctrl+C aborts; end of input selects def.
func (r *Readline) Ask(label, def string) (string, error) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	p := cyan(label)
	if def != "" {
		p += " " + gray("("+def+")")
	}
	r.rl.SetPrompt(p + ": ")

	line, err := r.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", ErrAborted
		} else if err == io.EOF {
			return def, nil
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Close releases the terminal.
func (r *Readline) Close() error {
	return r.rl.Close()
}

// ProjectConfig asks for name, version and authors, starting from defaults.
// Invalid answers are re-asked a few times before giving up. Problems are
// reported to w.
func ProjectConfig(a Asker, defaults *config.ProjectConfig, w io.Writer) (*config.ProjectConfig, error) {
	cfg := *defaults
	red := color.New(color.FgRed).SprintFunc()

	name, err := askValid(a, w, "Project name", cfg.Name, func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("name must not be empty")
		}
		return nil
	}, red)
	if err != nil {
		return nil, err
	}
	cfg.Name = name

	version, err := askValid(a, w, "Version", cfg.Version, func(s string) error {
		if !config.ValidVersion(s) {
			return fmt.Errorf("%q is not a semantic version (MAJOR.MINOR.PATCH)", s)
		}
		return nil
	}, red)
	if err != nil {
		return nil, err
	}
	cfg.Version = version

	authors, err := a.Ask("Authors (comma separated)", strings.Join(cfg.Authors, ", "))
	if err != nil {
		return nil, err
	}
	cfg.Authors = splitList(authors)

	return &cfg, nil
}

func askValid(a Asker, w io.Writer, label, def string, check func(string) error, red func(...interface{}) string) (string, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		ans, err := a.Ask(label, def)
		if err != nil {
			return "", err
		}
		if lastErr = check(ans); lastErr == nil {
			return ans, nil
		}
		fmt.Fprintf(w, "%s %v\n", red("Error:"), lastErr)
	}
	return "", fmt.Errorf("%s: %w", strings.ToLower(label), lastErr)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
