package models

// InboundMessage is a chat message delivered by the messaging gateway.
type InboundMessage struct {
	ChannelID int64
	SenderID  int64
	Text      string
}
