package phpboot

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Sink receives human-readable status messages. It is owned by the host UI.
type Sink interface {
	Publish(status string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(status string)

func (f SinkFunc) Publish(status string) {
	f(status)
}

// WriterSink writes each status on its own line.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Publish(status string) {
	//nolint:errcheck // a sink cannot fail the pipeline
	fmt.Fprintln(s.W, status)
}

type discardSink struct{}

func (discardSink) Publish(string) {}

// publisher wraps a Sink so that a misbehaving sink can't take down the pipeline.
type publisher struct {
	sink   Sink
	logger *log.Logger
}

func (p publisher) publish(status string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("progress sink panicked", "status", status, "panic", r)
		}
	}()
	p.logger.Debug("status", "msg", status)
	p.sink.Publish(status)
}
