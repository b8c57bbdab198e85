package signal

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Space/internal/app"
	"github.com/dkeye/Space/internal/config"
	"github.com/dkeye/Space/internal/core"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func newTestController(tickLimit int) *SignalWSController {
	cfg := &config.Config{
		ReadLimit:    32768,
		SendBuffer:   16,
		WriteTimeout: time.Second,
		TickLimit:    tickLimit,
		TickInterval: time.Hour,
	}
	return NewSignalWSController(cfg, app.NewDispatcher(app.NewState()))
}

// attach registers a session backed by a bare send channel, bypassing the
// websocket upgrade.
func attach(ctl *SignalWSController, sid core.SessionID) *wsSignalConn {
	conn := &wsSignalConn{send: make(chan core.Frame, 16)}
	ctl.Disp.Connect(sid, conn)
	return conn
}

// received drains the connection's send channel and decodes the frames
// matching the envelope type; an empty type returns everything.
func received(t *testing.T, c *wsSignalConn, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case fr := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(fr, &m))
			if typ == "" || m["type"] == typ {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func TestHandleTickMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"invalid json", `{"type":"tick","data"`},
		{"null data", `{"type":"tick","data":null}`},
		{"missing data", `{"type":"tick"}`},
		{"non-object data", `{"type":"tick","data":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newTestController(60)
			watcher := attach(ctl, "watcher")
			ctl.Disp.Ready("watcher")
			mover := attach(ctl, "mover")

			ctl.handleSignal("mover", mover, []byte(tt.frame))

			errs := received(t, mover, "error")
			require.Len(t, errs, 1)
			assert.Equal(t, "bad_payload", errs[0]["error"])
			assert.Empty(t, received(t, watcher, "usersUpdated"), "rejected tick must not broadcast")

			// The connection stays open: the next valid tick goes through.
			ctl.handleSignal("mover", mover, []byte(`{"type":"tick","data":{"pos":[1,0,0]}}`))

			ups := received(t, watcher, "usersUpdated")
			require.Len(t, ups, 1)
			users, ok := ups[0]["users"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, map[string]any{"pos": []any{1.0, 0.0, 0.0}}, users["mover"])
			assert.Empty(t, received(t, mover, "error"))
		})
	}
}

func TestHandleJoinMalformed(t *testing.T) {
	ctl := newTestController(60)
	a := attach(ctl, "a")
	b := attach(ctl, "b")

	ctl.handleSignal("a", a, []byte(`{"type":"joinChatRoom","room"`))
	ctl.handleSignal("a", a, []byte(`{"type":"joinChatRoom","room":""}`))

	errs := received(t, a, "error")
	require.Len(t, errs, 2)
	assert.Equal(t, "bad_payload", errs[0]["error"])
	assert.Equal(t, "empty room name", errs[1]["error"])

	// Neither frame moved "a" into a room: "b" finds it empty.
	ctl.handleSignal("b", b, []byte(`{"type":"joinChatRoom","room":"lobby"}`))
	assert.Empty(t, received(t, b, "addPeer"))
	assert.Empty(t, received(t, a, "addPeer"))
}

func TestHandleRelayMalformed(t *testing.T) {
	ctl := newTestController(60)
	x := attach(ctl, "x")
	y := attach(ctl, "y")

	ctl.handleSignal("x", x, []byte(`{"type":"relayICECandidate","ice_candidate"`))
	ctl.handleSignal("x", x, []byte(`{"type":"relayICECandidate","peer_id":""}`))
	ctl.handleSignal("x", x, []byte(`{"type":"relaySessionDescription","peer_id":""}`))

	errs := received(t, x, "error")
	require.Len(t, errs, 3)
	assert.Equal(t, "bad_payload", errs[0]["error"])
	assert.Equal(t, "missing peer_id", errs[1]["error"])
	assert.Equal(t, "missing peer_id", errs[2]["error"])

	assert.Empty(t, received(t, y, "iceCandidate"))
	assert.Empty(t, received(t, y, "sessionDescription"))
}

func TestRateLimitedTickDropsSilently(t *testing.T) {
	ctl := newTestController(1)
	watcher := attach(ctl, "watcher")
	ctl.Disp.Ready("watcher")
	mover := attach(ctl, "mover")

	ctl.handleSignal("mover", mover, []byte(`{"type":"tick","data":{"pos":[1]}}`))
	ctl.handleSignal("mover", mover, []byte(`{"type":"tick","data":{"pos":[2]}}`))

	ups := received(t, watcher, "usersUpdated")
	require.Len(t, ups, 1, "tick over the limit must not broadcast")
	users := ups[0]["users"].(map[string]any)
	assert.Equal(t, map[string]any{"pos": []any{1.0}}, users["mover"], "dropped tick must not mutate state")
	assert.Empty(t, received(t, mover, "error"), "throttling is silent")
}

func TestTickRateLimiterWindowSlides(t *testing.T) {
	rl := NewTickRateLimiter(1, 10*time.Millisecond)
	current := time.Unix(1000, 0)
	rl.now = func() time.Time { return current }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	current = current.Add(15 * time.Millisecond)
	assert.True(t, rl.Allow("a"), "old attempts age out of the window")
}
