package mlog

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/mediocregopher/atom/mctx"
)

// Null discards all messages handed to it.
var Null Handler = HandlerFunc(func(FullMessage) error { return nil })

type jsonMessage struct {
	Timestamp   int64             `json:"ts"`
	Level       string            `json:"level"`
	LevelInt    int               `json:"level_int"`
	Namespace   []string          `json:"ns,omitempty"`
	Description string            `json:"descr"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type jsonHandler struct {
	l   sync.Mutex
	out io.Writer
	enc *json.Encoder
}

// NewJSONHandler returns a Handler which writes one JSON object per line to
// out.
func NewJSONHandler(out io.Writer) Handler {
	return &jsonHandler{out: out, enc: json.NewEncoder(out)}
}

func (h *jsonHandler) Handle(msg FullMessage) error {
	h.l.Lock()
	defer h.l.Unlock()

	annotations := mctx.EvaluateAnnotations(msg.Context, nil)
	return h.enc.Encode(jsonMessage{
		Timestamp:   msg.Time.UnixNano(),
		Level:       msg.Level.String(),
		LevelInt:    int(msg.Level),
		Namespace:   msg.Namespace,
		Description: msg.Description,
		Annotations: annotations.StringMap(),
	})
}
