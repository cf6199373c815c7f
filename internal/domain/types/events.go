package types

// EventName is a relay event name. The names are part of the wire contract.
type EventName string

const (
	EventJoin             EventName = "join"
	EventLeave            EventName = "leave"
	EventPresenceAnnounce EventName = "presence:announce"
	EventPresenceWithdraw EventName = "presence:withdraw"
	EventMessage          EventName = "message"
	EventTypingStart      EventName = "typing:start"
	EventTypingStop       EventName = "typing:stop"
	EventReadReceipt      EventName = "read-receipt"
)

// Membership is the payload of join and leave.
type Membership struct {
	Channel Channel `json:"channel"`
}

// Presence is the payload of presence announce and withdraw.
type Presence struct {
	IdentityID    string        `json:"identityId"`
	DisplayName   string        `json:"displayName"`
	PublicKeyHash PublicKeyHash `json:"publicKeyHash"`
}

// Typing is the payload of typing start and stop.
type Typing struct {
	Channel               Channel        `json:"channel"`
	DisplayName           string         `json:"displayName"`
	ReceiverPublicKeyHash *PublicKeyHash `json:"receiverPublicKeyHash,omitempty"`
}

// ReadReceipt acknowledges that a message was displayed.
type ReadReceipt struct {
	MessageID           string        `json:"messageId"`
	Channel             Channel       `json:"channel"`
	SenderPublicKeyHash PublicKeyHash `json:"senderPublicKeyHash"`
}
