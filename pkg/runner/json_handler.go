package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Every turn is written as one JSON object. Input lines are a JSON string, an object
// with a "text" member, or raw text. Form lines are a JSON object of field values;
// "null" cancels the form.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, turn domain.Turn) error {
	return h.Encoder.Encode(turn)
}

func (h *JSONHandler) readLine() (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.readLine()
	if err != nil {
		return "", err
	}

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Text != nil {
		return *obj.Text, nil
	}

	// Fallback: plain text
	return text, nil
}

func (h *JSONHandler) Fill(ctx context.Context, prompt domain.Prompt) (domain.Draft, error) {
	text, err := h.readLine()
	if err != nil {
		return domain.Draft{}, err
	}
	if text == "" || text == "null" {
		return domain.Draft{}, ErrFormCancelled
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return domain.Draft{}, fmt.Errorf("failed to decode form values: %w", err)
	}
	order := make([]string, 0, len(prompt.Fields))
	for _, f := range prompt.Fields {
		order = append(order, f.Name)
	}
	return domain.DraftFromMap(values, order), nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(map[string]string{"system": msg})
}
