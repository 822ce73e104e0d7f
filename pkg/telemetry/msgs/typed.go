package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/rtio.go/pkg/framework"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindQuery uint32 = 0x00000000
	TypeIDKindEvent uint32 = 0x80000000
)

// Typed wraps a message with type information and its origin.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
	Session string `protobuf:"bytes,3,opt,name=session,proto3" json:"session,omitempty"`
	Node    string `protobuf:"bytes,4,opt,name=node,proto3" json:"node,omitempty"`
	Stamp   int64  `protobuf:"varint,5,opt,name=stamp,proto3" json:"stamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrNotSerializable indicates the message is not serializable.
var ErrNotSerializable = errors.New("not serializable message")

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	LinkStatusTypeID:    (*LinkStatus)(nil),
	RCSnapshotTypeID:    (*RCSnapshot)(nil),
	MergeStatusTypeID:   (*MergeStatus)(nil),
	MotorFeedbackTypeID: (*MotorFeedback)(nil),
	PipelineStatsTypeID: (*PipelineStats)(nil),
	BusStatsTypeID:      (*BusStats)(nil),
	NodeAnnounceTypeID:  (*NodeAnnounce)(nil),
}

// TypedFrom creates a Typed from a serializable message.
func TypedFrom(msg fx.Message) (*Typed, error) {
	if s, ok := msg.(SerializableMessage); ok {
		data, err := proto.Marshal(s.Serializable())
		if err != nil {
			return nil, err
		}
		return &Typed{TypeId: s.TypeID(), Message: data}, nil
	}
	return nil, ErrNotSerializable
}

// Decode decodes the packet into actual message.
func (m *Typed) Decode() (fx.Message, error) {
	msgType, ok := MessageTypes[m.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: m.TypeId}
	}
	msg := msgType.NewMessage()
	if err := proto.Unmarshal(m.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.TypeId&TypeIDMaskKind == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
