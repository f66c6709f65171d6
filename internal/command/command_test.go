package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLastLine(t *testing.T) {
	require.Equal(t, "", lastLine(""))
	require.Equal(t, "boom", lastLine("boom\n"))
	require.Equal(t, "input.bin: Invalid data found", lastLine("ffmpeg version 6\nbuilt with gcc\ninput.bin: Invalid data found\n"))
}

func TestExec(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		out, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "echo $GREETING"}, []string{"GREETING=hello"})
		require.NoError(t, err)
		require.Equal(t, "hello\n", string(out))
	})

	t.Run("exit code", func(t *testing.T) {
		_, err := Exec{}.Run(context.Background(), "sh", []string{"-c", "echo banner >&2; echo bad input >&2; exit 3"}, nil)
		require.EqualError(t, err, "sh failed (exit 3): bad input")
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := Exec{}.Run(context.Background(), "definitely-not-a-real-binary", nil, nil)
		require.ErrorContains(t, err, "definitely-not-a-real-binary failed")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Exec{}.Run(ctx, "sh", []string{"-c", "sleep 5"}, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSpawn(t *testing.T) {
	t.Run("exchange", func(t *testing.T) {
		conn, err := Exec{}.Spawn("sh", []string{"-c", `echo "ready $MODE"; while read line; do echo "got $line"; done`}, []string{"MODE=test"})
		require.NoError(t, err)
		defer conn.Close()

		line, err := conn.Receive()
		require.NoError(t, err)
		require.Equal(t, "ready test", string(line))

		for _, msg := range []string{"one", "two"} {
			require.NoError(t, conn.Send([]byte(msg)))
			line, err = conn.Receive()
			require.NoError(t, err)
			require.Equal(t, "got "+msg, string(line))
		}
	})

	t.Run("exit", func(t *testing.T) {
		conn, err := Exec{}.Spawn("sh", []string{"-c", "read line; echo loading >&2; echo out of memory >&2; exit 3"}, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.Send([]byte("job")))
		_, err = conn.Receive()
		require.EqualError(t, err, "sh exited (exit 3): out of memory")
	})

	t.Run("close stops the program", func(t *testing.T) {
		conn, err := Exec{}.Spawn("cat", nil, nil)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
		_, err = conn.Receive()
		require.Error(t, err)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := Exec{}.Spawn("definitely-not-a-real-binary", nil, nil)
		require.ErrorContains(t, err, "definitely-not-a-real-binary failed")
	})
}

func TestTailWriter(t *testing.T) {
	var w tailWriter
	_, _ = w.Write([]byte(strings.Repeat("x", tailSize)))
	_, _ = w.Write([]byte("\nlast words\n"))
	require.Len(t, w.buf, tailSize)
	require.Equal(t, "last words", w.last())
}
