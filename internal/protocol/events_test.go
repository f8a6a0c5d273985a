package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "join",
			raw:  `{"type":"join","payload":{"username":"alice","room":"room1"}}`,
			want: Join{Username: "alice", Room: "room1"},
		},
		{
			name: "chat",
			raw:  `{"type":"chat","payload":{"message":"hi"}}`,
			want: Chat{Message: "hi"},
		},
		{
			name: "users",
			raw:  `{"type":"users","id":"users-1-1","payload":{"users":["a","b"],"timestamp":"t"}}`,
			want: Users{Users: []string{"a", "b"}, Timestamp: "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ev, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	id, ev, err := Decode([]byte(`{"type":"typing","id":"x-1","payload":{}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownEventType))
	assert.Nil(t, ev)
	assert.Equal(t, "x-1", id)
}

func TestDecodeMalformed(t *testing.T) {
	_, _, err := Decode([]byte(`{not json`))
	require.Error(t, err)

	_, _, err = Decode([]byte(`{"type":"join","payload":"alice"}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownEventType))
}

func TestEncodeCarriesIDAndType(t *testing.T) {
	data, err := Encode("msg-1-1", Message{Username: "alice", Message: "hi", Timestamp: "t"})
	require.NoError(t, err)

	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, TypeMessage, f.Type)
	assert.Equal(t, "msg-1-1", f.ID)
	assert.JSONEq(t, `{"username":"alice","message":"hi","timestamp":"t"}`, string(f.Payload))
}

func TestEncodeEmptyUsersIsArray(t *testing.T) {
	data, err := Encode("users-1-1", Users{Timestamp: "t"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"users":[]`)
}

func TestEncodeOmitsEmptyID(t *testing.T) {
	data, err := Encode("", Join{Username: "alice", Room: "room1"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"id"`)
}

func TestNewIDUniqueUnderBurst(t *testing.T) {
	const workers, perWorker = 8, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, NewID(KindMessage))
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for id := range seen {
		assert.True(t, strings.HasPrefix(id, "msg-"))
		break
	}
}

func TestTimestampIsUTCWithMillis(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	ts := Timestamp(time.Date(2024, 5, 1, 15, 4, 5, 123_000_000, loc))
	assert.Equal(t, "2024-05-01T12:04:05.123Z", ts)
}
