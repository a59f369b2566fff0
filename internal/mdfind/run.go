// Package mdfind spawns the mdfind subprocess and streams its NUL-delimited
// output through the ignore filter and the Go-side query matcher.
package mdfind

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"spotfd/internal/logging"
	"spotfd/internal/query"
	"spotfd/internal/render"
)

// ErrNotFound is returned when the mdfind binary itself could not be
// located, distinct from mdfind running and failing.
var ErrNotFound = errors.New("mdfind not found")

// Includer decides whether a candidate path should be shown. *filter.Filter
// satisfies this; it is expressed as an interface here so this package does
// not need to import filter directly.
type Includer interface {
	ShouldInclude(path string) bool
}

// Run spawns mdfind with plan's arguments, and for every NUL-delimited
// candidate it prints, applies filter then plan's Matcher (if any), writing
// survivors through style and delim to out.
func Run(plan query.Plan, filt Includer, style render.Style, delim render.Delimiter, out *bufio.Writer) error {
	log := logging.For("mdfind")
	log.WithField("args", plan.Args).Debug("spawning mdfind")

	cmd := exec.Command("mdfind", plan.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture mdfind stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrNotFound
		}
		var pathErr *exec.Error
		if errors.As(err, &pathErr) {
			return ErrNotFound
		}
		return fmt.Errorf("spawn mdfind: %w", err)
	}

	reader := bufio.NewReader(stdout)
	for {
		chunk, readErr := reader.ReadBytes(0)
		chunk = bytes.TrimRight(chunk, "\x00\r")
		if len(chunk) > 0 {
			path := string(chunk)
			if err := handleCandidate(path, filt, plan.Matcher, style, delim, out); err != nil {
				_ = cmd.Wait()
				return err
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			_ = cmd.Wait()
			return fmt.Errorf("read mdfind output: %w", readErr)
		}
	}

	if err := out.Flush(); err != nil {
		_ = cmd.Wait()
		return err
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("mdfind exited with error: %w", err)
	}
	return nil
}

func handleCandidate(path string, filt Includer, matcher query.Matcher, style render.Style, delim render.Delimiter, out *bufio.Writer) error {
	if !filt.ShouldInclude(path) {
		return nil
	}
	if !matcher.Matches(filepath.Base(path)) {
		return nil
	}
	rendered := style.Render(path)
	return render.WritePath(out, rendered, delim)
}
