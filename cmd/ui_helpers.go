package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/config"
	"sqlchat/cli/internal/dsn"
	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/terminal"
)

// app bundles what every command needs: configuration, the diagnostic log and
// the connection configurator shared by every database the command opens.
type app struct {
	cfg       config.Config
	log       *logrus.Entry
	sessionID string
	closeLog  func() error
	conf      *dsn.Configurator
}

// loadApp reads configuration and opens the log file. A log file that cannot
// be opened is not fatal; the command runs without a diagnostic log.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, sessionID: uuid.NewString(), closeLog: func() error { return nil }}
	log, closeLog, err := logging.Open(logging.Options{Level: cfg.LogLevel, Verbose: verbose, SessionID: a.sessionID})
	if err != nil {
		pterm.Warning.Println(logging.PresentError("diagnostic log disabled", err))
		log = logging.Discard()
	} else {
		a.closeLog = closeLog
	}
	a.log = log
	a.conf = dsn.NewConfigurator(
		dsn.WithBaseDir(cfg.DB.BaseDir),
		dsn.WithReporter(ptermReporter{}),
		dsn.WithLogger(log),
		dsn.WithCache(cfg.DB.CacheTTL.Duration, nil),
	)
	return a, nil
}

func (a *app) Close() { _ = a.closeLog() }

// ptermReporter prints configuration outcomes.
type ptermReporter struct{}

func (ptermReporter) Success(msg string) { pterm.Success.Println(msg) }
func (ptermReporter) Failure(msg string) { pterm.Error.Println(msg) }

// promptText asks for a value, offering def when non-empty.
func promptText(label, def string) (string, error) {
	p := pterm.DefaultInteractiveTextInput
	if def != "" {
		p = *p.WithDefaultValue(def)
	}
	v, err := p.Show(label)
	return strings.TrimSpace(v), err
}

// promptSecret asks for a value without echoing it.
func promptSecret(label string) (string, error) {
	v, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show(label)
	return strings.TrimSpace(v), err
}

// lineReader returns the chat input source: an interactive pterm prompt on a
// terminal, plain lines otherwise. io.EOF ends the chat.
func lineReader(in io.Reader) func() (string, error) {
	if terminal.IsInteractive() {
		return func() (string, error) {
			return pterm.DefaultInteractiveTextInput.Show(pterm.Cyan("you"))
		}
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
}

// readHidden reads one line from stdin and erases the echoed prompt and input.
func readHidden(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if terminal.IsInteractive() {
		terminal.ClearPreviousLines(os.Stdout, len(prompt)+len(line))
	}
	return line, nil
}

// startInlineSpinner animates frames before text on one line until the
// returned stop function is called; stop clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

var stickFrames = []string{"|", "/", "-", "\\"}
