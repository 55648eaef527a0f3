package sse

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/model"
)

// Serve streams the events of document id to w until the request ends.
func (s *SSEClients) Serve(w http.ResponseWriter, r *http.Request, id model.DocumentID) {
	w.Header().Set(config.HCType, config.CTypeEventStream)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(id)
	s.Add(client)

	sseLogger.Debug().Str("document_id", string(id)).Msg("New SSE client connected")

	defer func() {
		s.Delete(client)
		sseLogger.Debug().Str("document_id", string(id)).Msg("SSE client disconnected")
	}()

	writeEvent(w, Event{Name: EventConnected, Data: "SSE connection established"})
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case ev, ok := <-client.Msg:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	if ev.Name != "" {
		fmt.Fprintf(w, "event: %s\n", ev.Name)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
