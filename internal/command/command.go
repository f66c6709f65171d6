// Package command runs the external tools the pipeline depends on
// (ffmpeg, yt-dlp, python helpers).
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner runs a program to completion and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string) ([]byte, error)
}

// Exec runs programs on the host. Extra env entries are appended to the
// current process environment.
type Exec struct{}

func (Exec) Run(ctx context.Context, name string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("%s failed (exit %d): %s", name, ee.ExitCode(), lastLine(stderr.String()))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	log.Debug().Str("cmd", name).Dur("took", time.Since(start)).Msg("command finished")
	return stdout.Bytes(), nil
}

// lastLine keeps error messages short: tools like ffmpeg print a banner
// before the actual failure.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
