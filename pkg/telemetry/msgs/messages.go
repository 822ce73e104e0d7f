package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/rtio.go/pkg/framework"
)

// LinkStatus reports one receiver link.
type LinkStatus struct {
	Name        string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Priority    uint32 `protobuf:"varint,2,opt,name=priority,proto3" json:"priority,omitempty"`
	Enabled     bool   `protobuf:"varint,3,opt,name=enabled,proto3" json:"enabled,omitempty"`
	Active      bool   `protobuf:"varint,4,opt,name=active,proto3" json:"active,omitempty"`
	Received    uint32 `protobuf:"varint,5,opt,name=received,proto3" json:"received,omitempty"`
	Decoded     uint32 `protobuf:"varint,6,opt,name=decoded,proto3" json:"decoded,omitempty"`
	Rejected    uint32 `protobuf:"varint,7,opt,name=rejected,proto3" json:"rejected,omitempty"`
	Dropped     uint32 `protobuf:"varint,8,opt,name=dropped,proto3" json:"dropped,omitempty"`
	Timeouts    uint32 `protobuf:"varint,9,opt,name=timeouts,proto3" json:"timeouts,omitempty"`
	Activations uint32 `protobuf:"varint,10,opt,name=activations,proto3" json:"activations,omitempty"`
}

// NewMessage implements Message.
func (m *LinkStatus) NewMessage() fx.Message { return &LinkStatus{} }

// TypeID implements SerializableMessage.
func (m *LinkStatus) TypeID() uint32 { return LinkStatusTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// RCSnapshot is the decoded state of the winning receiver.
type RCSnapshot struct {
	Link     string    `protobuf:"bytes,1,opt,name=link,proto3" json:"link,omitempty"`
	Channels []float32 `protobuf:"fixed32,2,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	Wheel    float32   `protobuf:"fixed32,3,opt,name=wheel,proto3" json:"wheel,omitempty"`
	// Switches holds DR16 switch positions or the VT03 gear.
	Switches []uint32 `protobuf:"varint,4,rep,packed,name=switches,proto3" json:"switches,omitempty"`
	MouseX   float32  `protobuf:"fixed32,5,opt,name=mouse_x,proto3" json:"mouse_x,omitempty"`
	MouseY   float32  `protobuf:"fixed32,6,opt,name=mouse_y,proto3" json:"mouse_y,omitempty"`
	MouseZ   float32  `protobuf:"fixed32,7,opt,name=mouse_z,proto3" json:"mouse_z,omitempty"`
	// Buttons is a bitmap of pressed or held mouse buttons.
	Buttons uint32 `protobuf:"varint,8,opt,name=buttons,proto3" json:"buttons,omitempty"`
	// Keys is a bitmap of pressed or held keys in key_code order.
	Keys uint32 `protobuf:"varint,9,opt,name=keys,proto3" json:"keys,omitempty"`
}

// NewMessage implements Message.
func (m *RCSnapshot) NewMessage() fx.Message { return &RCSnapshot{} }

// TypeID implements SerializableMessage.
func (m *RCSnapshot) TypeID() uint32 { return RCSnapshotTypeID }

// Serializable implements SerializableMessage.
func (m *RCSnapshot) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *RCSnapshot) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RCSnapshot) Reset() { *m = RCSnapshot{} }

// String implements proto.Message.
func (m *RCSnapshot) String() string { return proto.CompactTextString(m) }

// MergeStatus reports a merge frame.
type MergeStatus struct {
	Bus      uint32   `protobuf:"varint,1,opt,name=bus,proto3" json:"bus,omitempty"`
	Id       uint32   `protobuf:"varint,2,opt,name=id,proto3" json:"id,omitempty"`
	Policy   string   `protobuf:"bytes,3,opt,name=policy,proto3" json:"policy,omitempty"`
	InUse    []uint32 `protobuf:"varint,4,rep,packed,name=in_use,proto3" json:"in_use,omitempty"`
	Missing  []uint32 `protobuf:"varint,5,rep,packed,name=missing,proto3" json:"missing,omitempty"`
	Rounds   uint32   `protobuf:"varint,6,opt,name=rounds,proto3" json:"rounds,omitempty"`
	Partials uint32   `protobuf:"varint,7,opt,name=partials,proto3" json:"partials,omitempty"`
	Failures uint32   `protobuf:"varint,8,opt,name=failures,proto3" json:"failures,omitempty"`
}

// NewMessage implements Message.
func (m *MergeStatus) NewMessage() fx.Message { return &MergeStatus{} }

// TypeID implements SerializableMessage.
func (m *MergeStatus) TypeID() uint32 { return MergeStatusTypeID }

// Serializable implements SerializableMessage.
func (m *MergeStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *MergeStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MergeStatus) Reset() { *m = MergeStatus{} }

// String implements proto.Message.
func (m *MergeStatus) String() string { return proto.CompactTextString(m) }

// MotorFeedback reports a motor.
type MotorFeedback struct {
	Name        string  `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Angle       float32 `protobuf:"fixed32,2,opt,name=angle,proto3" json:"angle,omitempty"`
	Speed       float32 `protobuf:"fixed32,3,opt,name=speed,proto3" json:"speed,omitempty"`
	Torque      float32 `protobuf:"fixed32,4,opt,name=torque,proto3" json:"torque,omitempty"`
	Temperature int32   `protobuf:"varint,5,opt,name=temperature,proto3" json:"temperature,omitempty"`
	Command     float32 `protobuf:"fixed32,6,opt,name=command,proto3" json:"command,omitempty"`
	Enabled     bool    `protobuf:"varint,7,opt,name=enabled,proto3" json:"enabled,omitempty"`
}

// NewMessage implements Message.
func (m *MotorFeedback) NewMessage() fx.Message { return &MotorFeedback{} }

// TypeID implements SerializableMessage.
func (m *MotorFeedback) TypeID() uint32 { return MotorFeedbackTypeID }

// Serializable implements SerializableMessage.
func (m *MotorFeedback) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *MotorFeedback) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorFeedback) Reset() { *m = MotorFeedback{} }

// String implements proto.Message.
func (m *MotorFeedback) String() string { return proto.CompactTextString(m) }

// PipelineStats reports a capture pipeline.
type PipelineStats struct {
	Name          string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	State         string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Completions   uint32 `protobuf:"varint,3,opt,name=completions,proto3" json:"completions,omitempty"`
	Claimed       uint32 `protobuf:"varint,4,opt,name=claimed,proto3" json:"claimed,omitempty"`
	Unclaimed     uint32 `protobuf:"varint,5,opt,name=unclaimed,proto3" json:"unclaimed,omitempty"`
	Failures      uint32 `protobuf:"varint,6,opt,name=failures,proto3" json:"failures,omitempty"`
	RearmFailures uint32 `protobuf:"varint,7,opt,name=rearm_failures,proto3" json:"rearm_failures,omitempty"`
}

// NewMessage implements Message.
func (m *PipelineStats) NewMessage() fx.Message { return &PipelineStats{} }

// TypeID implements SerializableMessage.
func (m *PipelineStats) TypeID() uint32 { return PipelineStatsTypeID }

// Serializable implements SerializableMessage.
func (m *PipelineStats) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PipelineStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PipelineStats) Reset() { *m = PipelineStats{} }

// String implements proto.Message.
func (m *PipelineStats) String() string { return proto.CompactTextString(m) }

// BusStats reports a bus dispatcher.
type BusStats struct {
	Bus       uint32 `protobuf:"varint,1,opt,name=bus,proto3" json:"bus,omitempty"`
	Receivers uint32 `protobuf:"varint,2,opt,name=receivers,proto3" json:"receivers,omitempty"`
	Received  uint32 `protobuf:"varint,3,opt,name=received,proto3" json:"received,omitempty"`
	Unknown   uint32 `protobuf:"varint,4,opt,name=unknown,proto3" json:"unknown,omitempty"`
}

// NewMessage implements Message.
func (m *BusStats) NewMessage() fx.Message { return &BusStats{} }

// TypeID implements SerializableMessage.
func (m *BusStats) TypeID() uint32 { return BusStatsTypeID }

// Serializable implements SerializableMessage.
func (m *BusStats) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *BusStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BusStats) Reset() { *m = BusStats{} }

// String implements proto.Message.
func (m *BusStats) String() string { return proto.CompactTextString(m) }

// NodeAnnounce is published when a node starts.
type NodeAnnounce struct {
	Node    string   `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Session string   `protobuf:"bytes,2,opt,name=session,proto3" json:"session,omitempty"`
	Links   []string `protobuf:"bytes,3,rep,name=links,proto3" json:"links,omitempty"`
	Motors  []string `protobuf:"bytes,4,rep,name=motors,proto3" json:"motors,omitempty"`
}

// NewMessage implements Message.
func (m *NodeAnnounce) NewMessage() fx.Message { return &NodeAnnounce{} }

// TypeID implements SerializableMessage.
func (m *NodeAnnounce) TypeID() uint32 { return NodeAnnounceTypeID }

// Serializable implements SerializableMessage.
func (m *NodeAnnounce) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *NodeAnnounce) ProtoMessage() {}

// Reset implements proto.Message.
func (m *NodeAnnounce) Reset() { *m = NodeAnnounce{} }

// String implements proto.Message.
func (m *NodeAnnounce) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupNode  uint32 = 0x00010000
	GroupRC    uint32 = 0x00020000
	GroupCAN   uint32 = 0x00030000
	GroupMotor uint32 = 0x00040000
)

// TypeIDs
const (
	NodeAnnounceTypeID  uint32 = GroupNode | TypeIDKindEvent | 0x0000
	PipelineStatsTypeID uint32 = GroupNode | TypeIDKindEvent | 0x0001
	LinkStatusTypeID    uint32 = GroupRC | TypeIDKindEvent | 0x0000
	RCSnapshotTypeID    uint32 = GroupRC | TypeIDKindEvent | 0x0001
	BusStatsTypeID      uint32 = GroupCAN | TypeIDKindEvent | 0x0000
	MergeStatusTypeID   uint32 = GroupCAN | TypeIDKindEvent | 0x0001
	MotorFeedbackTypeID uint32 = GroupMotor | TypeIDKindEvent | 0x0000
)
