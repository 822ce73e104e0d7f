package can

// SlotCount is the number of int16 slots carried by a merge frame.
const SlotCount = 4

// EncodeSlots packs slot values big-endian, two bytes per slot.
func EncodeSlots(v [SlotCount]int16) (data [8]byte) {
	for i, s := range v {
		data[i*2] = byte(uint16(s) >> 8)
		data[i*2+1] = byte(uint16(s))
	}
	return
}

// DecodeSlots is the inverse of EncodeSlots.
func DecodeSlots(data [8]byte) (v [SlotCount]int16) {
	for i := range v {
		v[i] = int16(uint16(data[i*2])<<8 | uint16(data[i*2+1]))
	}
	return
}
