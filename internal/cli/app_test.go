package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/pkg/domain"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ThinkLatency = 0
	cfg.LogLevel = "debug"
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, WithLogOutput(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func bookService(t *testing.T, app *App, id string) domain.Turn {
	t.Helper()
	ctx := context.Background()
	m := app.Assistant.Manager()

	turn, err := m.SubmitText(ctx, id, "book service")
	require.NoError(t, err)
	require.NotNil(t, turn.Form)
	turn, err = m.Answer(ctx, id, turn.ID, domain.NewDraft(
		"customerName", "Jane Doe",
		"phone", "+1 555 0100",
		"vehicleMake", "Toyota",
		"vehicleModel", "Camry",
		"plateNumber", "ABC-1234",
	))
	require.NoError(t, err)
	require.NotNil(t, turn.Form)
	turn, err = m.Answer(ctx, id, turn.ID, domain.NewDraft(
		"serviceType", "Oil Change",
		"preferredDate", "2026-11-02",
		"preferredTime", "Morning (8AM-12PM)",
	))
	require.NoError(t, err)
	require.NotNil(t, turn.Card)
	return turn
}

func TestNewApp_Defaults(t *testing.T) {
	app := newTestApp(t, testConfig())
	assert.Nil(t, app.Registry)
	require.NotNil(t, app.Records, "memory sink lists records")

	bookService(t, app, "s1")
	records, err := app.Records.Records(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "***", records[0].Fields.Value("phone"), "PII masked by default")
	assert.Equal(t, "Jane Doe", records[0].Fields.Value("customerName"))
}

func TestNewApp_FileStoreEncrypted(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Store = config.StoreFile
	cfg.File.Dir = dir
	cfg.Sink = config.SinkNone
	cfg.EncryptionKey = testKey

	app := newTestApp(t, cfg)
	assert.Nil(t, app.Records)
	bookService(t, app, "enc")

	data, err := os.ReadFile(filepath.Join(dir, "enc.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Jane Doe", "transcript is sealed at rest")

	again := newTestApp(t, cfg)
	turns, err := again.Assistant.Manager().Turns(context.Background(), "enc")
	require.NoError(t, err)
	assert.Len(t, turns, 6)
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.Store = config.StoreSQLite
	cfg.Sink = config.SinkSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "db", "concierge.db")

	app := newTestApp(t, cfg)
	bookService(t, app, "sql")

	var out bytes.Buffer
	require.NoError(t, ShowSession(context.Background(), app, "sql", false, &out))
	assert.Contains(t, out.String(), "Booking Confirmed")
	assert.Contains(t, out.String(), "Record BK-")
	assert.Contains(t, out.String(), "phone: ***", "records are masked, transcripts are not")
}

func TestNewApp_Metrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	app := newTestApp(t, cfg)
	require.NotNil(t, app.Registry)

	bookService(t, app, "m")
	families, err := app.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["concierge_turns_total"])
	assert.True(t, names["concierge_flows_completed_total"])
}

func TestNewApp_FlowsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
flows:
  - id: opening_hours
    title: Opening Hours
    keywords: [opening hours, hours]
    text: We are open Mon-Fri 8AM-6PM.
`), 0o644))

	cfg := testConfig()
	cfg.Flows = p
	app := newTestApp(t, cfg)

	turn, err := app.Assistant.Manager().SubmitText(context.Background(), "h", "what are your opening hours?")
	require.NoError(t, err)
	assert.Equal(t, "We are open Mon-Fri 8AM-6PM.", turn.Content)
}

func TestNewApp_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("flows:\n  - id: broken\n"), 0o644))

	cfg := testConfig()
	cfg.Flows = bad
	_, err := NewApp(context.Background(), cfg, WithLogOutput(io.Discard))
	assert.ErrorContains(t, err, "broken")

	cfg = testConfig()
	cfg.PIIPatterns = []string{"("}
	_, err = NewApp(context.Background(), cfg, WithLogOutput(io.Discard))
	assert.Error(t, err)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, testConfig())

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "No sessions found.")

	bookService(t, app, "alpha")
	out.Reset()
	require.NoError(t, ListSessions(ctx, app, &out))
	assert.Contains(t, out.String(), "alpha")
	assert.Contains(t, out.String(), "idle")

	out.Reset()
	require.NoError(t, ShowSession(ctx, app, "alpha", true, &out))
	assert.Contains(t, out.String(), `"records"`)
	assert.Contains(t, out.String(), `"session_id": "alpha"`)

	out.Reset()
	require.NoError(t, RemoveSessions(ctx, app, []string{"alpha"}, &out))
	assert.Contains(t, out.String(), "Removed session 'alpha'")
	assert.Error(t, ShowSession(ctx, app, "alpha", false, &out))
}

func TestChat_PlainText(t *testing.T) {
	app := newTestApp(t, testConfig())
	input := strings.Join([]string{
		"book service",
		"Jane Doe", "+1 555 0100", "Toyota", "Camry", "ABC-1234",
		"4", "2026-11-02", "1", "",
		"exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	err := Chat(context.Background(), app, ChatOptions{
		SessionID: "chat",
		Quiet:     true,
		In:        strings.NewReader(input),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "(step 1 of 2)")
	assert.Contains(t, out.String(), "(step 2 of 2)")
	assert.Contains(t, out.String(), "Booking Confirmed")
	assert.Contains(t, out.String(), "Service: Oil Change")

	turns, err := app.Assistant.Manager().Turns(context.Background(), "chat")
	require.NoError(t, err)
	assert.Len(t, turns, 6)
}

func TestChat_ResumeAndAlias(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	_, err := app.Assistant.Manager().SubmitText(ctx, "again", "hello")
	require.NoError(t, err)

	var out bytes.Buffer
	err = Chat(ctx, app, ChatOptions{
		SessionID: "again",
		In:        strings.NewReader("?\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Resuming session 'again' (2 turns)")
	assert.Contains(t, out.String(), "> hello", "transcript replayed")

	turns, err := app.Assistant.Manager().Turns(ctx, "again")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "menu", turns[2].Content, "alias expanded before submit")
}

func TestChat_JSONFresh(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	_, err := app.Assistant.Manager().SubmitText(ctx, "js", "hello")
	require.NoError(t, err)

	var out bytes.Buffer
	err = Chat(ctx, app, ChatOptions{
		SessionID: "js",
		Fresh:     true,
		JSON:      true,
		In:        strings.NewReader(`{"text":"job status"}` + "\n" + `{"jobNumber":"JOB-1001"}` + "\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "form turn then card turn, no replay")
	assert.Contains(t, lines[0], `"presentation":"form"`)
	assert.Contains(t, lines[1], `"presentation":"card"`)
}
