package terminal

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// LineReader reads lines from one input stream for every consumer in the
// process (the chat REPL and the confirmation gate). A read abandoned by a
// cancelled context stays in flight and its line goes to the next caller.
type LineReader struct {
	mu      sync.Mutex
	r       *bufio.Reader
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is returned with a nil error; io.EOF follows it.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	lr.mu.Lock()
	if lr.pending == nil {
		ch := make(chan lineResult, 1)
		lr.pending = ch
		go func() {
			line, err := lr.r.ReadString('\n')
			if err == io.EOF && line != "" {
				err = nil
			}
			ch <- lineResult{line: strings.TrimRight(line, "\r\n"), err: err}
		}()
	}
	ch := lr.pending
	lr.mu.Unlock()

	select {
	case res := <-ch:
		lr.mu.Lock()
		lr.pending = nil
		lr.mu.Unlock()
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
