package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-gateway/pkg/electrician"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var (
	readSvc = inventory.Service{
		Name: "getAccount", Namespace: "accounts channel", Resource: "acct-cc",
		Group: "Accounts", Operation: "Get", Mode: inventory.ModeRead,
	}
	writeSvc = inventory.Service{
		Name: "createPayment", Namespace: "payments", Resource: "pay-cc",
		Operation: "Create", Mode: inventory.ModeWrite,
	}
)

func TestHTTPExecutor_Invoke(t *testing.T) {
	var (
		gotPath string
		gotBody invokeRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &gotBody))
		_, _ = w.Write([]byte(`{"id":"a-1","balance":12}`))
	}))
	defer srv.Close()

	ex := NewHTTPExecutor(srv.URL+"/", time.Second, zaptest.NewLogger(t))
	out, err := ex.Invoke(context.Background(), readSvc, "alice", json.RawMessage(`{"id":"a-1"}`))
	require.NoError(t, err)

	assert.Equal(t, "/namespaces/accounts%20channel/resources/acct-cc/evaluate", gotPath)
	assert.Equal(t, "Get", gotBody.Operation)
	assert.Equal(t, "Accounts", gotBody.Group)
	assert.Equal(t, "alice", gotBody.Identity)
	require.Len(t, gotBody.Args, 1)
	assert.JSONEq(t, `{"id":"a-1"}`, string(gotBody.Args[0]))

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a-1", m["id"])
	assert.Equal(t, json.Number("12"), m["balance"])
}

func TestHTTPExecutor_WriteUsesSubmitAndEmptyParams(t *testing.T) {
	var gotPath string
	var args []json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body invokeRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		args = body.Args
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := NewHTTPExecutor(srv.URL, 0, nil).Invoke(context.Background(), writeSvc, "bob", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, "/namespaces/payments/resources/pay-cc/submit", gotPath)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{}`, string(args[0]))
}

func TestHTTPExecutor_Failures(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   string
	}{
		{"client error propagates", http.StatusNotFound, `{"code":"ASSET_NOT_FOUND","message":"no such asset"}`, http.StatusNotFound, "ASSET_NOT_FOUND"},
		{"server error maps to 502", http.StatusInternalServerError, `{"code":"ENDORSEMENT","message":"policy failure"}`, http.StatusBadGateway, "ENDORSEMENT"},
		{"unparsed failure", http.StatusForbidden, `nope`, http.StatusForbidden, string(gwerr.ErrBackend)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPExecutor(srv.URL, time.Second, nil).Invoke(context.Background(), readSvc, "alice", nil)
			require.ErrorIs(t, err, gwerr.ErrBackend)
			ge, ok := gwerr.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantStatus, ge.Status)
			assert.Equal(t, tc.wantCode, ge.Code)
			assert.NotEmpty(t, ge.Message)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewHTTPExecutor(url, time.Second, nil).Invoke(context.Background(), readSvc, "alice", nil)
		ge, ok := gwerr.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadGateway, ge.Status)
	})

	t.Run("malformed result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"a":`))
		}))
		defer srv.Close()
		_, err := NewHTTPExecutor(srv.URL, time.Second, nil).Invoke(context.Background(), readSvc, "alice", nil)
		require.ErrorIs(t, err, gwerr.ErrBackend)
	})
}

type recordingRelay struct {
	mu      sync.Mutex
	enabled bool
	err     error
	got     []electrician.RelayRequest
}

func (r *recordingRelay) Publish(_ context.Context, rr electrician.RelayRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rr)
	return r.err
}

func (r *recordingRelay) Enabled() bool { return r.enabled }

func fixedExecutor(out any, err error) Executor {
	return ExecutorFunc(func(context.Context, inventory.Service, string, json.RawMessage) (any, error) {
		return out, err
	})
}

func TestPublishing_PublishesWrites(t *testing.T) {
	relay := &recordingRelay{enabled: true}
	p := NewPublishing(fixedExecutor(map[string]any{"ok": true}, nil), relay, zaptest.NewLogger(t))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return at }

	out, err := p.Invoke(context.Background(), writeSvc, "bob", json.RawMessage(`{"amount":5}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, out)

	require.Len(t, relay.got, 1)
	rr := relay.got[0]
	assert.Equal(t, TxEventTopic, rr.Topic)

	var ev TxEvent
	require.NoError(t, json.Unmarshal(rr.Body, &ev))
	assert.Equal(t, rr.Headers["event-id"], ev.ID)
	assert.Len(t, ev.ID, 36)
	assert.Equal(t, "createPayment", ev.Service)
	assert.Equal(t, "bob", ev.Identity)
	assert.JSONEq(t, `{"amount":5}`, string(ev.Params))
	assert.True(t, at.Equal(ev.At))
}

func TestPublishing_SkipsReadsFailuresAndDisabledRelay(t *testing.T) {
	relay := &recordingRelay{enabled: true}
	boom := errors.New("boom")

	_, err := NewPublishing(fixedExecutor(1, nil), relay, nil).Invoke(context.Background(), readSvc, "a", nil)
	require.NoError(t, err)
	_, err = NewPublishing(fixedExecutor(nil, boom), relay, nil).Invoke(context.Background(), writeSvc, "a", nil)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, relay.got)

	off := &recordingRelay{}
	_, err = NewPublishing(fixedExecutor(1, nil), off, nil).Invoke(context.Background(), writeSvc, "a", nil)
	require.NoError(t, err)
	assert.Empty(t, off.got)
}

func TestPublishing_PublishFailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	relay := &recordingRelay{enabled: true, err: errors.New("relay down")}

	out, err := NewPublishing(fixedExecutor("done", nil), relay, zap.New(core)).Invoke(context.Background(), writeSvc, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "tx event publish failed", logs.All()[0].Message)
}
