package http

import (
	"encoding/json"

	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/proto"
)

// inboundToCommand decodes a client envelope. A non-empty reason is sent back
// to the client as an error event instead of dispatching.
func inboundToCommand(inbound proto.Envelope) (*core.Command, string) {
	switch inbound.Event {
	case proto.EventJoin:
		var room proto.JoinData
		if err := json.Unmarshal(inbound.Data, &room); err != nil {
			return nil, "invalid join payload"
		}
		return &core.Command{Kind: core.CommandJoin, Room: string(room)}, ""
	case proto.EventMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, "invalid message payload"
		}
		return &core.Command{Kind: core.CommandMessage, To: string(msg.To), Text: msg.Message}, ""
	case proto.EventPrivateMessage:
		var msg proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, "invalid private_message payload"
		}
		return &core.Command{Kind: core.CommandPrivateMessage, To: string(msg.RecipientID), Text: msg.Message}, ""
	default:
		return nil, "unknown event"
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{Event: event.Kind.String()}

	switch event.Kind {
	case core.EventNewAccessToken:
		out.Data = event.Token
	case core.EventOnlineUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		out.Data = users
	case core.EventMessage:
		if event.Message != nil {
			out.Data = proto.OutMessage{
				From:    event.Message.From,
				To:      event.Message.To,
				Message: event.Message.Text,
				TS:      event.Message.CreatedAt.Unix(),
			}
		}
	case core.EventReceiveMessage:
		if event.Message != nil {
			out.Data = proto.ReceiveMessage{
				Sender:  event.Message.Sender,
				Message: event.Message.Text,
			}
		}
	default:
		// Rejections and errors carry a plain string reason.
		out.Data = event.Reason
	}
	return out
}
