package types

// MessageType tells receivers whether the payload fields are sealed.
type MessageType string

const (
	MessagePlain     MessageType = "plain"
	MessageSystem    MessageType = "system"
	MessageEncrypted MessageType = "encrypted"
)

// Message is the relay wire shape. For MessageEncrypted, SenderName, Body and
// Timestamp each carry an independent EncryptedBlob; routing fields stay in
// the clear.
type Message struct {
	ID                    string         `json:"id,omitempty"`
	SenderName            string         `json:"senderName"`
	Body                  string         `json:"message"`
	Timestamp             string         `json:"timestamp"`
	Channel               Channel        `json:"channel"`
	SenderPublicKeyHash   PublicKeyHash  `json:"senderPublicKeyHash"`
	ReceiverPublicKeyHash *PublicKeyHash `json:"receiverPublicKeyHash"`
	MessageType           MessageType    `json:"messageType"`
	SchemeVersion         int            `json:"v,omitempty"`
}

// Opened is the result of opening a received message. When DecryptionError
// is set, Message is the envelope exactly as received and callers must show
// it as undecryptable.
type Opened struct {
	Message         Message `json:"message"`
	DecryptionError bool    `json:"decryptionError"`
	Reason          string  `json:"reason,omitempty"`
}
