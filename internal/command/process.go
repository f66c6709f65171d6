package command

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const closeTimeout = 5 * time.Second

// Spawner starts long-running programs that exchange newline-delimited
// messages over stdin and stdout.
type Spawner interface {
	Spawn(name string, args []string, env []string) (Conn, error)
}

// Conn is the message channel to a spawned program. Send and Receive are not
// safe for concurrent use; Close may be called while either one is blocked.
type Conn interface {
	// Send writes msg followed by a newline.
	Send(msg []byte) error
	// Receive reads the next line, without its newline.
	Receive() ([]byte, error)
	// Close closes stdin and waits for the program to exit, killing it
	// if it does not.
	Close() error
}

func (Exec) Spawn(name string, args []string, env []string) (Conn, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	stderr := &tailWriter{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	log.Debug().Str("cmd", name).Int("pid", cmd.Process.Pid).Msg("process started")

	return &process{
		name:   name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: stderr,
		done:   make(chan struct{}),
	}, nil
}

type process struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *tailWriter

	waitOnce sync.Once
	waitErr  error
	done     chan struct{}
}

func (p *process) Send(msg []byte) error {
	if _, err := p.stdin.Write(append(bytes.TrimRight(msg, "\n"), '\n')); err != nil {
		return p.exited(err)
	}
	return nil
}

func (p *process) Receive() ([]byte, error) {
	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		return nil, p.exited(err)
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (p *process) Close() error {
	_ = p.stdin.Close()
	go p.wait()
	select {
	case <-p.done:
	case <-time.After(closeTimeout):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	return nil
}

func (p *process) wait() {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		close(p.done)
	})
}

// exited turns a broken pipe into an error carrying the exit status and the
// last line the program printed on stderr.
func (p *process) exited(err error) error {
	if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%s failed: %w", p.name, err)
	}
	p.wait()
	var ee *exec.ExitError
	if errors.As(p.waitErr, &ee) {
		return fmt.Errorf("%s exited (exit %d): %s", p.name, ee.ExitCode(), p.stderr.last())
	}
	return fmt.Errorf("%s exited: %s", p.name, p.stderr.last())
}

// tailWriter keeps the end of a stream for error messages.
type tailWriter struct {
	mu  sync.Mutex
	buf []byte
}

const tailSize = 4096

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if len(w.buf) > tailSize {
		w.buf = w.buf[len(w.buf)-tailSize:]
	}
	return len(p), nil
}

func (w *tailWriter) last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return lastLine(string(w.buf))
}
