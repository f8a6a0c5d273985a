package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorWriteMembers(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectTxPipeline()
	mock.ExpectDel("presence:room:room1").SetVal(1)
	mock.ExpectRPush("presence:room:room1", "alice", "bob").SetVal(2)
	mock.ExpectSAdd("presence:rooms", "room1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, m.write(context.Background(), update{room: "room1", users: []string{"alice", "bob"}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorWriteEmptyRoom(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectTxPipeline()
	mock.ExpectDel("presence:room:room1").SetVal(1)
	mock.ExpectSRem("presence:rooms", "room1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, m.write(context.Background(), update{room: "room1", users: []string{}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorWriteError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectTxPipeline()
	mock.ExpectDel("presence:room:room1").SetErr(errors.New("boom"))

	require.Error(t, m.write(context.Background(), update{room: "room1"}))
}

func TestMirrorReset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectSMembers("presence:rooms").SetVal([]string{"a", "b"})
	mock.ExpectDel("presence:room:a", "presence:room:b", "presence:rooms").SetVal(3)

	require.NoError(t, m.Reset(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorResetSMembersError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectSMembers("presence:rooms").SetErr(errors.New("down"))
	require.Error(t, m.Reset(context.Background()))
}

func TestMirrorPublishDropsWhenFull(t *testing.T) {
	db, _ := redismock.NewClientMock()
	m := NewMirror(db, 2)

	m.Publish("room1", []string{"alice"})
	m.Publish("room1", []string{"alice", "bob"})
	m.Publish("room1", []string{"alice", "bob", "carol"}) // dropped

	require.Len(t, m.updates, 2)
	assert.Equal(t, []string{"alice"}, (<-m.updates).users)
	assert.Equal(t, []string{"alice", "bob"}, (<-m.updates).users)
}

func TestMirrorRunWritesQueuedUpdates(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMirror(db, 4)

	mock.ExpectTxPipeline()
	mock.ExpectDel("presence:room:room1").SetVal(0)
	mock.ExpectRPush("presence:room:room1", "alice").SetVal(1)
	mock.ExpectSAdd("presence:rooms", "room1").SetVal(1)
	mock.ExpectTxPipelineExec()

	m.Publish("room1", []string{"alice"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, m.updates)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "presence:room:lobby", Key("lobby"))
}
