package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/r3labs/sse/v2"
)

// NewSSEServer returns an SSE server with one stream per table. Clients
// select a stream with the "stream" query parameter.
func NewSSEServer() *sse.Server {
	srv := sse.New()
	srv.AutoStream = false
	srv.AutoReplay = false
	for _, t := range Tables {
		srv.CreateStream(t)
	}
	return srv
}

// SSESink publishes changes to the stream named after their table.
type SSESink struct {
	srv *sse.Server
}

// NewSSESink constructs an SSESink.
func NewSSESink(srv *sse.Server) *SSESink {
	if srv == nil {
		panic("realtime: nil sse server")
	}
	return &SSESink{srv: srv}
}

func (s *SSESink) Name() string { return "sse" }

// Publish implements Sink.
func (s *SSESink) Publish(_ context.Context, c Change) error {
	if !s.srv.StreamExists(c.Table) {
		return fmt.Errorf("no stream for table %q", c.Table)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	s.srv.Publish(c.Table, &sse.Event{Event: []byte(c.Op), Data: data})
	return nil
}
