package command

import (
	"bytes"
	"io"

	"golang.org/x/sync/errgroup"
)

// drainPair reads both streams to end-of-stream on independent goroutines so
// that a child blocked writing one full pipe never waits on the other. It
// returns whatever was read; a read error ends that stream early and is
// reported alongside the partial output.
func drainPair(stdout, stderr io.Reader) (string, string, error) {
	var outBuf, errBuf bytes.Buffer

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, stderr)
		return err
	})
	err := g.Wait()

	return outBuf.String(), errBuf.String(), err
}

// drainOne reads a single merged stream to end-of-stream.
func drainOne(r io.Reader) (string, error) {
	var buf bytes.Buffer
	_, err := io.Copy(&buf, r)
	return buf.String(), err
}
