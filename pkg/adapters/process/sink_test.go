package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/pkg/domain"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func testRecord() domain.Record {
	return domain.Record{
		FlowID:      "service_booking",
		Reference:   "BK-1234",
		SessionID:   "s1",
		Fields:      domain.NewDraft("customerName", "Jane Doe", "plateNumber", "ABC-1234"),
		CompletedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSink_PassesRecordAsEnv(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	s := NewSink(WithBaseDir(dir))
	s.Register(CommandConfig{
		Flow:    "service_booking",
		Command: "sh",
		Args:    []string{"-c", `echo "$CONCIERGE_REFERENCE $CONCIERGE_FIELD_CUSTOMER_NAME $CONCIERGE_FIELD_PLATE_NUMBER $EXTRA" > out.txt`},
		Environment: map[string]string{
			"EXTRA": "ok",
		},
	})

	require.NoError(t, s.Publish(context.Background(), testRecord()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "BK-1234 Jane Doe ABC-1234 ok", strings.TrimSpace(string(data)))
}

func TestSink_WritesJSONToStdin(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	s := NewSink(WithBaseDir(dir))
	s.Register(CommandConfig{Flow: AnyFlow, Command: "sh", Args: []string{"-c", "cat > record.json"}})

	require.NoError(t, s.Publish(context.Background(), testRecord()))
	data, err := os.ReadFile(filepath.Join(dir, "record.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reference":"BK-1234"`)
}

func TestSink_IgnoresOtherFlows(t *testing.T) {
	s := NewSink()
	s.Register(CommandConfig{Flow: "payment", Command: "definitely-not-a-command"})
	assert.NoError(t, s.Publish(context.Background(), testRecord()))
}

func TestSink_Failures(t *testing.T) {
	skipOnWindows(t)
	s := NewSink()
	s.Register(CommandConfig{Flow: "service_booking", Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	s.Register(CommandConfig{Flow: "service_booking", Command: "sh", Args: []string{"-c", "sleep 5"}, Timeout: 50 * time.Millisecond})

	err := s.Publish(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 2, strings.Count(err.Error(), "execution failed"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CUSTOMER_NAME", envName("customerName"))
	assert.Equal(t, "PLATE_NUMBER", envName("plateNumber"))
	assert.Equal(t, "JOB_NUMBER", envName("job_number"))
	assert.Equal(t, "LINE1_QTY", envName("line1Qty"))
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()

	cmds, err := LoadCommands(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cmds)

	p := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
commands:
  - flow: service_booking
    command: ./notify.sh
    args: [--channel, sms]
    timeout: 5s
  - flow: "*"
    command: ./audit.sh
  - flow: payment
`), 0o644))
	cmds, err = LoadCommands(p)
	require.NoError(t, err)
	require.Len(t, cmds["service_booking"], 1)
	assert.Equal(t, 5*time.Second, cmds["service_booking"][0].Timeout)
	assert.Len(t, cmds[AnyFlow], 1)
	assert.NotContains(t, cmds, "payment", "entries without a command are skipped")

	pj := filepath.Join(dir, "commands.json")
	require.NoError(t, os.WriteFile(pj, []byte(`{"commands":[{"flow":"lead_create","command":"crm-sync"}]}`), 0o644))
	cmds, err = LoadCommands(pj)
	require.NoError(t, err)
	assert.Equal(t, "crm-sync", cmds["lead_create"][0].Command)
}
