package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obiente/translate/scribe/internal/pipeline"
	"github.com/obiente/translate/scribe/internal/transcript"
)

func TestReadInput(t *testing.T) {
	b, err := readInput(strings.NewReader(`{"file_url": "u"}`), "-")
	require.NoError(t, err)
	require.Equal(t, `{"file_url": "u"}`, string(b))

	path := filepath.Join(t.TempDir(), "job.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"yt_url": "y"}`), 0o600))
	b, err = readInput(nil, path)
	require.NoError(t, err)
	require.Equal(t, `{"yt_url": "y"}`, string(b))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "failed to read input")
}

func TestWriteResult(t *testing.T) {
	ok := pipeline.Result{Segments: []transcript.Merged{{Start: 0, End: 1.5, Speaker: "SPEAKER_00", Text: "hello"}}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeResult(&buf, "json", ok))
		require.JSONEq(t, `{"segments": [{"start": 0, "end": 1.5, "speaker": "SPEAKER_00", "text": "hello"}]}`, buf.String())
	})

	t.Run("vtt", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeResult(&buf, "vtt", ok))
		require.Equal(t, "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\n<v SPEAKER_00>hello\n", buf.String())
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeResult(&buf, "text", ok))
		require.Equal(t, "00:00:00.000 -> 00:00:01.500\nSPEAKER_00\nhello\n", buf.String())
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		res := pipeline.Result{Err: &pipeline.Error{Kind: pipeline.KindAcquisition, Err: errors.New("failed to download: status 404")}}
		err := writeResult(&buf, "vtt", res)
		require.EqualError(t, err, "failed to download: status 404")
		require.JSONEq(t, `{"error": "failed to download: status 404"}`, buf.String())
	})
}

func TestRunRejectsFormat(t *testing.T) {
	cmd := runCmd()
	cmd.SetArgs([]string{"--format", "srt"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.EqualError(t, cmd.Execute(), `unsupported format "srt"`)
}

func TestRunRejectsEnvelope(t *testing.T) {
	cmd := runCmd()
	cmd.SetArgs([]string{"--input", "-"})
	cmd.SetIn(strings.NewReader(`{"input": null}`))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.EqualError(t, cmd.Execute(), "missing input")
}

// runMain runs main in a child process with args, returning its stderr.
func runMain(t *testing.T, args []string, stdin string, env ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestMainProcess$")
	cmd.Env = append(os.Environ(), "SCRIBE_MAIN_ARGS="+strings.Join(args, "\x1f"))
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &bytes.Buffer{}
	err := cmd.Run()
	return stderr.String(), err
}

func TestMainProcess(t *testing.T) {
	args := os.Getenv("SCRIBE_MAIN_ARGS")
	if args == "" {
		t.Skip("only runs as a child of TestMainReportsErrors")
	}
	os.Args = append([]string{"scribe"}, strings.Split(args, "\x1f")...)
	main()
}

func TestMainReportsErrors(t *testing.T) {
	tcs := []struct {
		name     string
		args     []string
		stdin    string
		env      []string
		expected string
	}{
		{
			name:     "invalid config",
			args:     []string{"serve"},
			env:      []string{"TRANSCRIBE_API=bogus", "SCRIBE_CONFIG="},
			expected: "invalid Transcribe.API",
		},
		{
			name:     "missing input",
			args:     []string{"run", "--input", "-"},
			stdin:    `{"input": {}}`,
			expected: "missing input",
		},
		{
			name:     "unsupported format",
			args:     []string{"run", "--format", "srt"},
			expected: "unsupported format",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			stderr, err := runMain(t, tc.args, tc.stdin, tc.env...)
			var exitErr *exec.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, 1, exitErr.ExitCode())
			require.Contains(t, stderr, "scribe failed")
			require.Contains(t, stderr, tc.expected)
		})
	}
}
