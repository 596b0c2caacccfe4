package frame

// ClassicMTU is the usable payload of a CAN 2.0 frame (8 data bytes).
const ClassicMTU = 8

// fdSlots are the CAN-FD data-length-code slot sizes a payload length
// rounds up to. Sizes <= 8 map 1:1 to DLC, per spec.md §6.
var fdSlots = [...]int{8, 12, 16, 20, 24, 32, 48, 64}

// FDSlotForLength rounds a data length up to the next valid CAN-FD slot
// size. It returns false if length exceeds the largest slot (64 bytes).
func FDSlotForLength(length int) (int, bool) {
	for _, slot := range fdSlots {
		if length <= slot {
			return slot, true
		}
	}
	return 0, false
}

// IsValidFDLength reports whether length is itself one of the CAN-FD
// DLC slot sizes in fdSlots (not merely small enough to round up to
// one). It does not apply to classic CAN, whose data length is any
// value 0-8; callers on the classic-CAN path must not use this to
// validate frame lengths.
func IsValidFDLength(length int) bool {
	for _, slot := range fdSlots {
		if slot == length {
			return true
		}
	}
	return false
}

// MTU returns the maximum frame payload for the given FD-ness: 8 for
// classic CAN, 64 for CAN-FD.
func MTU(fd bool) int {
	if fd {
		return fdSlots[len(fdSlots)-1]
	}
	return ClassicMTU
}
