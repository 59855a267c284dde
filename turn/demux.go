package turn

import (
	"context"
	"errors"
	"io"
)

// DemuxState tracks the demultiplexer's position in its event stream.
type DemuxState string

const (
	DemuxStart        DemuxState = "start"
	DemuxEmittingText DemuxState = "emitting_text"
	DemuxSkippingTool DemuxState = "skipping_tool"
	DemuxDone         DemuxState = "done"
)

// Demux turns one turn's mixed model event stream into a clean sequence of
// user-visible text fragments. Tool invocation and tool result framing is
// dropped; visible fragments keep source arrival order. Nothing is buffered
// beyond the current event, so fragments reach the caller in real time.
type Demux struct {
	source EventStream
	state  DemuxState
	err    error
}

// NewDemux wraps the event stream of a single turn.
func NewDemux(source EventStream) *Demux {
	return &Demux{
		source: source,
		state:  DemuxStart,
	}
}

// Next returns the next visible text fragment, io.EOF once the source stream
// terminates, or the source error verbatim. A terminal error is sticky:
// polling past it returns the same error again. Tool-tagged events move the
// state to SkippingTool and yield nothing; text events with empty content are
// dropped without leaving the current state.
func (d *Demux) Next(ctx context.Context) (string, error) {
	if d.state == DemuxDone {
		if d.err != nil {
			return "", d.err
		}
		return "", io.EOF
	}
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			d.state = DemuxDone
			d.err = ctxErr
			return "", ctxErr
		}

		event, err := d.source.Next(ctx)
		if err != nil {
			d.state = DemuxDone
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			d.err = err
			return "", err
		}

		switch event.Origin {
		case OriginText:
			if event.Text == "" {
				continue
			}
			d.state = DemuxEmittingText
			return event.Text, nil
		default:
			d.state = DemuxSkippingTool
		}
	}
}

// State exposes the current machine state for observability and tests.
func (d *Demux) State() DemuxState {
	return d.state
}

// Close terminates the demultiplexer and its source stream.
func (d *Demux) Close() error {
	d.state = DemuxDone
	return d.source.Close()
}
