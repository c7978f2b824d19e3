package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSSESink_DeliversToTableStream(t *testing.T) {
	srv := NewSSEServer()
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"?stream="+TableRegistrations, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	change := Change{Table: TableRegistrations, Op: OpInsert, ID: "r1", At: time.Now().UTC()}
	require.NoError(t, NewSSESink(srv).Publish(context.Background(), change))

	var data, event string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if line == "" && data != "" {
			break
		}
	}

	var got Change
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	require.Equal(t, "r1", got.ID)
	require.Equal(t, OpInsert, event)
}

func TestSSESink_UnknownTable(t *testing.T) {
	srv := NewSSEServer()
	defer srv.Close()

	err := NewSSESink(srv).Publish(context.Background(), Change{Table: "users", Op: OpInsert, ID: "1"})
	require.Error(t, err)
}
