// Package checksum abstracts the per-entry checksum overlay applied to the
// raw payload tar stream before it is compressed.
//
// The overlay is an opaque byte transform: the pipeline feeds the stream in
// and carries the output forward without interpreting it. The default is the
// identity transform; deployments that rely on an external helper binary
// (abuild-tar style) plug in Command instead.
package checksum

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Transform rewrites a payload tar stream.
//
// Apply must consume src to completion and write the transformed stream to
// dst before returning. The call blocks until the transform finishes;
// cancellation is delivered through ctx.
type Transform interface {
	Apply(ctx context.Context, dst io.Writer, src io.Reader) error
}

// Identity passes the stream through unchanged.
type Identity struct{}

// Apply implements Transform.
func (Identity) Apply(ctx context.Context, dst io.Writer, src io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.Copy(dst, src)
	return err
}

// Command runs an external helper process, feeding the stream to its stdin
// and reading the transformed stream from its stdout to completion.
type Command struct {
	Name string
	Args []string
}

// Apply implements Transform.
func (c Command) Apply(ctx context.Context, dst io.Writer, src io.Reader) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		defer stdin.Close()
		_, err := io.Copy(stdin, src)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(dst, stdout)
		return err
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()
	if waitErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Name, waitErr, msg)
		}
		return fmt.Errorf("%s: %w", c.Name, waitErr)
	}
	if copyErr != nil {
		return fmt.Errorf("%s: %w", c.Name, copyErr)
	}
	return nil
}
