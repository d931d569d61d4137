package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/internal/flows"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/aretw0/concierge/pkg/session"
)

type fixture struct {
	server  *Server
	handler http.Handler
	mgr     *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := registry.NewRegistry(flows.Catalog()...)
	require.NoError(t, err)

	streams := NewStreamManager(nil)
	mgr := session.NewManager(
		memory.NewStore(),
		runtime.NewResolver(reg, runtime.WithHelp(flows.Help)),
		session.WithCatalog(reg),
		session.WithChangeListener(streams.Publish),
	)
	srv := NewServer(mgr, reg, WithStreams(streams), WithVersion("1.2.3\n"))
	return &fixture{server: srv, handler: enableCORS(srv.Routes()), mgr: mgr}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestGetHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])

	rr = f.do(t, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	info := decode[map[string]string](t, rr)
	assert.Equal(t, "concierge-http", info["app"])
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPIDocumentsEveryRoute(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)

	f := newFixture(t)
	err = chi.Walk(f.server.Routes(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route != "/" {
			route = strings.TrimSuffix(route, "/")
		}
		if route == "/openapi.yaml" || route == "/swagger" {
			return nil
		}
		item := doc.Paths.Value(route)
		if assert.NotNil(t, item, "route %s is not documented", route) {
			assert.NotNil(t, item.GetOperation(method), "%s %s is not documented", method, route)
		}
		return nil
	})
	require.NoError(t, err)

	rr := f.do(t, http.MethodGet, "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Concierge API")
}

func TestFlows(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/flows", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]domain.Flow](t, rr)
	assert.Len(t, list, len(flows.Catalog()))

	rr = f.do(t, http.MethodGet, "/flows/service_booking", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	flow := decode[domain.Flow](t, rr)
	assert.Equal(t, "Book Service", flow.Title)
	assert.Len(t, flow.Steps, 2)

	rr = f.do(t, http.MethodGet, "/flows/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBookingOverHTTP(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/sessions", map[string]string{"id": "web-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "web-1", decode[domain.Conversation](t, rr).SessionID)

	rr = f.do(t, http.MethodPost, "/sessions/web-1/messages", map[string]string{"text": "book service"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	prompt := decode[domain.Turn](t, rr)
	require.Equal(t, domain.PresentForm, prompt.Presentation)
	assert.Equal(t, "customer_vehicle", prompt.Form.StepID)

	rr = f.do(t, http.MethodPost, fmt.Sprintf("/sessions/web-1/turns/%d/answer", prompt.ID), map[string]any{
		"values": map[string]string{
			"customerName": "John Doe",
			"phone":        "+1 555 0100",
			"vehicleMake":  "Toyota",
			"vehicleModel": "Camry",
			"plateNumber":  "ABC-1234",
		},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	second := decode[domain.Turn](t, rr)
	require.Equal(t, domain.PresentForm, second.Presentation)
	assert.Equal(t, "service_schedule", second.Form.StepID)
	assert.Equal(t, "John Doe", second.Form.Draft.Value("customerName"))

	rr = f.do(t, http.MethodPost, "/sessions/web-1/forms", domain.FormSubmission{
		FlowID:  second.Form.FlowID,
		StepID:  second.Form.StepID,
		Carried: second.Form.Draft,
		Values: domain.NewDraft(
			"serviceType", "Oil Change",
			"preferredDate", "2024-06-01",
			"preferredTime", "Morning (8AM-12PM)",
		),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	card := decode[domain.Turn](t, rr)
	require.Equal(t, domain.PresentCard, card.Presentation)
	assert.Regexp(t, `^BK-\d{4}$`, card.Card.Reference)

	rr = f.do(t, http.MethodGet, "/sessions/web-1/turns", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.Turn](t, rr), 6)

	rr = f.do(t, http.MethodGet, fmt.Sprintf("/sessions/web-1/turns?since=%d", second.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tail := decode[[]domain.Turn](t, rr)
	require.Len(t, tail, 2)
	assert.Equal(t, card.ID, tail[1].ID)

	rr = f.do(t, http.MethodGet, "/sessions/web-1/busy", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[map[string]bool](t, rr)["busy"])

	rr = f.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[[]string](t, rr), "web-1")
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/sessions/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/sessions/s1/messages", map[string]string{"text": "book service"})
	require.Equal(t, http.StatusOK, rr.Code)
	prompt := decode[domain.Turn](t, rr)

	t.Run("Validation", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, fmt.Sprintf("/sessions/s1/turns/%d/answer", prompt.ID), map[string]any{
			"values": map[string]string{"customerName": "John"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		body := decode[map[string][]map[string]string](t, rr)
		fields := make([]string, 0, len(body["errors"]))
		for _, e := range body["errors"] {
			fields = append(fields, e["field"])
		}
		assert.Contains(t, fields, "phone")
	})

	t.Run("Not A Form", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, fmt.Sprintf("/sessions/s1/turns/%d/answer", prompt.ID-1), map[string]any{
			"values": map[string]string{},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown Turn", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/sessions/s1/turns/99/answer", map[string]any{"values": map[string]string{}})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Bad Turn ID", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/sessions/s1/turns/abc/answer", map[string]any{"values": map[string]string{}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown Flow", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/sessions/s1/forms", domain.FormSubmission{FlowID: "nope", StepID: "x"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Empty Text", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/sessions/s1/messages", map[string]string{"text": "  "})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Busy", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("submit: %w", domain.ErrSessionBusy)))
	})

	rr = f.do(t, http.MethodDelete, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sessions/sse-1/events?watch=turns", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())
	require.Eventually(t, func() bool { return f.server.Streams.Subscribers("sse-1") == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.mgr.SubmitText(ctx, "sse-1", "hi")
	require.NoError(t, err)

	var payloads []domain.TranscriptDiff
	for len(payloads) < 2 && lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var diff domain.TranscriptDiff
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &diff))
		payloads = append(payloads, diff)
	}
	require.Len(t, payloads, 2)
	require.Len(t, payloads[0].Appended, 1)
	assert.Equal(t, domain.RoleUser, payloads[0].Appended[0].Role)
	require.Len(t, payloads[1].Appended, 1)
	assert.Equal(t, domain.RoleAssistant, payloads[1].Appended[0].Role)
}
