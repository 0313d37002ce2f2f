package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// fakeSession builds a Session without a WebSocket connection. The write
// pump is never started, so packets stay in SendChan for inspection.
func fakeSession(userID int64, username string) *Session {
	return &Session{
		UserID:   userID,
		Username: username,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   nopLogger(),
	}
}

func recvPacket(t *testing.T, s *Session) *Packet {
	t.Helper()
	select {
	case data := <-s.SendChan:
		var pkt Packet
		require.NoError(t, json.Unmarshal(data, &pkt))
		return &pkt
	default:
		t.Fatal("expected a packet")
		return nil
	}
}

func TestRegister_Lookup(t *testing.T) {
	reg := NewRegistry(nopLogger())
	s := fakeSession(1, "alice")

	reg.Register(s)

	assert.Same(t, s, reg.Lookup(1))
	assert.True(t, reg.IsOnline(1))
	assert.Equal(t, 1, reg.Count())
}

func TestRegister_InvalidSessionIgnored(t *testing.T) {
	reg := NewRegistry(nopLogger())

	reg.Register(nil)
	reg.Register(fakeSession(0, "ghost"))
	reg.Register(fakeSession(-3, "ghost"))

	assert.Equal(t, 0, reg.Count())
}

func TestRegister_ReconnectDisplacesWithoutClose(t *testing.T) {
	reg := NewRegistry(nopLogger())
	s1 := fakeSession(1, "alice")
	s2 := fakeSession(1, "alice")

	reg.Register(s1)
	reg.Register(s2)

	// Lookup only ever yields the newest session.
	assert.Same(t, s2, reg.Lookup(1))
	assert.Equal(t, 1, reg.Count())

	// The displaced session is not closed; its lifetime belongs to the
	// transport.
	assert.False(t, s1.IsClosed())
}

func TestDeregister_AbsentIsNoOp(t *testing.T) {
	reg := NewRegistry(nopLogger())

	reg.Deregister(42)

	assert.Equal(t, 0, reg.Count())
	assert.False(t, reg.IsOnline(42))
}

func TestDeregisterSession_GuardsAgainstStaleEviction(t *testing.T) {
	reg := NewRegistry(nopLogger())
	s1 := fakeSession(1, "alice")
	s2 := fakeSession(1, "alice")

	reg.Register(s1)
	reg.Register(s2)

	// The displaced connection's late disconnect must not evict the newer
	// registration.
	assert.False(t, reg.DeregisterSession(s1))
	assert.Same(t, s2, reg.Lookup(1))

	assert.True(t, reg.DeregisterSession(s2))
	assert.Nil(t, reg.Lookup(1))
}

func TestOnline_Snapshot(t *testing.T) {
	reg := NewRegistry(nopLogger())
	reg.Register(fakeSession(1, "alice"))
	reg.Register(fakeSession(2, "bob"))
	reg.Register(fakeSession(3, "carol"))
	reg.Deregister(2)

	assert.ElementsMatch(t, []int64{1, 3}, reg.Online())
}

func TestBroadcastExcept_SkipsSelf(t *testing.T) {
	reg := NewRegistry(nopLogger())
	self := fakeSession(1, "alice")
	other := fakeSession(2, "bob")
	reg.Register(self)
	reg.Register(other)

	reg.BroadcastExcept(1, &Event{
		Kind:    EventPresenceChange,
		Payload: json.RawMessage(`{"user_id":1,"status":1}`),
	})

	pkt := recvPacket(t, other)
	assert.Equal(t, "presence_change", pkt.Type)

	select {
	case <-self.SendChan:
		t.Fatal("broadcast must not echo to the originator")
	default:
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(nopLogger())

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s := fakeSession(id, fmt.Sprintf("user%d", id))
			reg.Register(s)
			reg.Lookup(id)
			reg.IsOnline(id)
			if id%2 == 0 {
				reg.DeregisterSession(s)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 25, reg.Count())
}
