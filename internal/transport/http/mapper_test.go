package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   *core.Command
		reason string
	}{
		{
			name: "join with string room",
			raw:  `{"event":"join","data":"room-7"}`,
			want: &core.Command{Kind: core.CommandJoin, Room: "room-7"},
		},
		{
			name: "join with numeric room",
			raw:  `{"event":"join","data":7}`,
			want: &core.Command{Kind: core.CommandJoin, Room: "7"},
		},
		{
			name: "message",
			raw:  `{"event":"message","data":{"to":"2","message":"hi"}}`,
			want: &core.Command{Kind: core.CommandMessage, To: "2", Text: "hi"},
		},
		{
			name: "message with numeric recipient",
			raw:  `{"event":"message","data":{"to":2,"message":"hi"}}`,
			want: &core.Command{Kind: core.CommandMessage, To: "2", Text: "hi"},
		},
		{
			name: "private message",
			raw:  `{"event":"private_message","data":{"recipientId":"3","message":"yo"}}`,
			want: &core.Command{Kind: core.CommandPrivateMessage, To: "3", Text: "yo"},
		},
		{
			name:   "fractional recipient",
			raw:    `{"event":"message","data":{"to":2.5,"message":"hi"}}`,
			reason: "invalid message payload",
		},
		{
			name:   "unknown",
			raw:    `{"event":"leave","data":"room-7"}`,
			reason: "unknown event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env proto.Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &env))

			cmd, reason := inboundToCommand(env)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
				assert.Nil(t, cmd)
				return
			}
			require.Empty(t, reason)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestOutboundFromEvent(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)

	out := outboundFromEvent(&core.Event{Kind: core.EventMessage, Message: &core.DirectMessage{From: "B", To: "1", Text: "hi", CreatedAt: ts}})
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"message","data":{"from":"B","to":"1","message":"hi","ts":1700000000}}`, string(encoded))

	out = outboundFromEvent(&core.Event{Kind: core.EventOnlineUsers})
	encoded, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"online-users","data":[]}`, string(encoded))

	out = outboundFromEvent(&core.Event{Kind: core.EventAlreadyConnected, Reason: "user 1 is already connected"})
	encoded, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"already-connected","data":"user 1 is already connected"}`, string(encoded))

	for _, kind := range []core.EventKind{core.EventInvalidToken, core.EventInvalidUser, core.EventServerError, core.EventError} {
		encoded, err = json.Marshal(outboundFromEvent(&core.Event{Kind: kind, Reason: "nope"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"`+kind.String()+`","data":"nope"}`, string(encoded))
	}

	encoded, err = json.Marshal(outboundFromEvent(&core.Event{Kind: core.EventNewAccessToken, Token: "tok"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"new-access-token","data":"tok"}`, string(encoded))

	out = outboundFromEvent(&core.Event{Kind: core.EventReceiveMessage, Message: &core.DirectMessage{Sender: "conn-1", Text: "yo"}})
	encoded, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"receive_message","data":{"sender":"conn-1","message":"yo"}}`, string(encoded))
}
