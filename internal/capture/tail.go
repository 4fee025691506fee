package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// PollInterval is how often a tailed log is re-read once it is drained.
var PollInterval = 50 * time.Millisecond

// lineSplitter splits on '\n', '\r' or "\r\n". ffmpeg rewrites its progress
// line with bare carriage returns, so a line ending in '\r' is handed out at
// once and a '\n' arriving right after it is dropped.
type lineSplitter struct {
	afterCR bool
}

func (s *lineSplitter) split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if s.afterCR && len(data) > 0 {
		s.afterCR = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		s.afterCR = data[i] == '\r'
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Tail follows the file at path from its beginning and hands every complete
// line to fn together with the time it was read. It returns when fn returns
// false, when exited is closed and the file is drained, or when ctx ends.
func Tail(ctx context.Context, path string, exited <-chan struct{}, fn func(line string, at time.Time) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var split lineSplitter
	var pending []byte
	finished := false
	for {
		chunk, err := r.ReadSlice('\n')
		pending = append(pending, chunk...)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}

		for {
			adv, tok, _ := split.split(pending, false)
			if adv == 0 {
				break
			}
			pending = pending[adv:]
			if tok == nil {
				continue
			}
			if !fn(string(tok), time.Now()) {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			if finished {
				if len(pending) > 0 {
					if _, tok, _ := split.split(pending, true); tok != nil {
						fn(string(tok), time.Now())
					}
				}
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-exited:
				// One more pass picks up whatever was written before exit.
				finished = true
			case <-time.After(PollInterval):
			}
		}
	}
}
