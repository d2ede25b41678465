package server

import (
	"bufio"
	"context"
)

// pipe runs a producer in its own goroutine and hands its output to the
// response writer. The handler waits for the first chunk before committing
// a status code, so failures that happen before any output can still be
// reported as a proper HTTP error.
type pipe struct {
	chunks chan string
	done   chan error
	cancel context.CancelFunc
}

// startPipe runs produce in the background. Its context is not tied to
// the fiber request: streaming outlives the handler, and a failed write
// cancels it instead. Producers bound their own run time.
func startPipe(produce func(ctx context.Context, emit func(string) error) error) *pipe {
	ctx, cancel := context.WithCancel(context.Background())

	p := &pipe{
		chunks: make(chan string, 16),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		err := produce(ctx, func(chunk string) error {
			select {
			case p.chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(p.chunks)
		p.done <- err
	}()
	return p
}

// first blocks until the first chunk arrives or the producer finishes.
// When ok is false the producer is done and err is its result.
func (p *pipe) first() (chunk string, ok bool, err error) {
	chunk, ok = <-p.chunks
	if ok {
		return chunk, true, nil
	}
	err = <-p.done
	p.cancel()
	return "", false, err
}

// drain writes first and every following chunk to w, flushing after each.
// A write failure (client gone) cancels the producer. The producer's
// result is passed to onDone, which may append a trailer.
func (p *pipe) drain(w *bufio.Writer, first string, onDone func(w *bufio.Writer, err error)) {
	defer p.cancel()

	writeErr := writeChunk(w, first)
	for chunk := range p.chunks {
		if writeErr != nil {
			continue
		}
		if writeErr = writeChunk(w, chunk); writeErr != nil {
			p.cancel()
		}
	}

	err := <-p.done
	if writeErr == nil && onDone != nil {
		onDone(w, err)
		_ = w.Flush()
	}
}

func writeChunk(w *bufio.Writer, chunk string) error {
	if _, err := w.WriteString(chunk); err != nil {
		return err
	}
	return w.Flush()
}
