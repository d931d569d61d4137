package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/concierge/pkg/domain"
)

func TestTextHandler_OutputText(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := handler.Output(context.Background(), domain.Turn{
		Role: domain.RoleAssistant, Presentation: domain.PresentText, Content: "Hello World",
	})
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	if !strings.Contains(outBuf.String(), "Rendered: Hello World") {
		t.Errorf("Expected rendered output, got '%s'", outBuf.String())
	}
}

func TestTextHandler_OutputCardAndForm(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf)
	progress := 60

	_ = handler.Output(context.Background(), domain.Turn{
		Role: domain.RoleAssistant, Presentation: domain.PresentForm,
		Form: &domain.Prompt{Title: "🧽 Service & Schedule", StepIndex: 1, StepCount: 2},
	})
	_ = handler.Output(context.Background(), domain.Turn{
		Role: domain.RoleAssistant, Presentation: domain.PresentCard,
		Card: &domain.Card{Title: "🔧 Job Status: JOB-101", Badge: "Detailing", Lines: []string{"Job: JOB-1"}, Progress: &progress},
	})

	out := outBuf.String()
	for _, want := range []string{"🧽 Service & Schedule  (step 2 of 2)", "🔧 Job Status: JOB-101 [Detailing]", "  Job: JOB-1", "Progress: 60%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTextHandler_Input(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("my user input\n"), outBuf)

	val, err := handler.Input(context.Background())
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if val != "my user input" {
		t.Errorf("Expected 'my user input', got '%s'", val)
	}
	if prompt := outBuf.String(); prompt != "> " {
		t.Errorf("Expected prompt '> ', got '%s'", prompt)
	}

	if _, err := handler.Input(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF, got %v", err)
	}
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	handler := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := handler.Input(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTextHandler_Fill(t *testing.T) {
	prompt := domain.Prompt{Fields: []domain.FieldSpec{
		{Name: "serviceType", Label: "Service", Type: domain.FieldRadio, Required: true, Options: []string{"Basic Wash", "Oil Change"}},
		{Name: "notes", Label: "Notes", Type: domain.FieldTextarea},
		{Name: "preferredTime", Label: "Time", Type: domain.FieldRadio, Options: []string{"Morning", "Evening"}},
	}}
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("2\n\nevening\n"), outBuf)

	values, err := handler.Fill(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if got := values.Keys(); strings.Join(got, ",") != "serviceType,preferredTime" {
		t.Errorf("unexpected keys %v", got)
	}
	if values.Value("serviceType") != "Oil Change" {
		t.Errorf("expected option picked by number, got %q", values.Value("serviceType"))
	}
	if values.Value("preferredTime") != "Evening" {
		t.Errorf("expected option matched case-insensitively, got %q", values.Value("preferredTime"))
	}
	if !strings.Contains(outBuf.String(), "  2) Oil Change") || !strings.Contains(outBuf.String(), "Service *: ") {
		t.Errorf("unexpected prompts:\n%s", outBuf.String())
	}
}

func TestTextHandler_FillCancel(t *testing.T) {
	prompt := domain.Prompt{Fields: []domain.FieldSpec{{Name: "a", Label: "A"}}}
	handler := NewTextHandler(strings.NewReader("/cancel\n"), io.Discard)

	if _, err := handler.Fill(context.Background(), prompt); !errors.Is(err, ErrFormCancelled) {
		t.Errorf("expected ErrFormCancelled, got %v", err)
	}
}

func TestTextHandler_CustomFiller(t *testing.T) {
	handler := NewTextHandler(strings.NewReader(""), io.Discard, WithTextHandlerFiller(
		func(ctx context.Context, p domain.Prompt) (domain.Draft, error) {
			return domain.NewDraft("from", "filler"), nil
		}))

	values, err := handler.Fill(context.Background(), domain.Prompt{})
	if err != nil || values.Value("from") != "filler" {
		t.Errorf("expected custom filler to be used, got %v %v", values.Map(), err)
	}
}
