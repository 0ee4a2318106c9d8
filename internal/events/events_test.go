package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := Event{
		Type: CaseDerived, CaseID: "c1", Code: "RES-2026-1234",
		Status: "Derivado", FromAreaID: "MESA", ToAreaID: "LEGAL", Actor: "Ana", At: at,
	}

	rec, err := record("tramite.case-events", e)
	require.NoError(t, err)

	assert.Equal(t, "tramite.case-events", rec.Topic)
	assert.Equal(t, "c1", string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "event-type", rec.Headers[0].Key)
	assert.Equal(t, "case.derived", string(rec.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, e, decoded)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: CaseRegistered}))
}

func TestNewKafka_Lazy(t *testing.T) {
	// Клиент создаётся без соединения с брокером.
	k, err := NewKafka([]string{"127.0.0.1:1"}, "t", slog.New(slog.NewTextHandler(os.Stdout, nil)))
	require.NoError(t, err)
	defer k.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.Error(t, k.Publish(ctx, Event{Type: CaseRegistered, CaseID: "c1"}))
}
