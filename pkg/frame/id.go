package frame

// CAN ID bit layout (29 bits, MSB to LSB), per spec.md §3:
//
//	bit 28:26  priority
//	bit 25     service flag (0=message, 1=service)
//	bit 24     message: anonymous flag   | service: request(1)/response(0)
//	bit 23:22  message: reserved (0,0)   | service: bit 23 reserved (0)
//	bit 22:14  -                        | service: service id (9 bits)
//	bit 20:8   message: subject id (13 bits)
//	bit 13:7   -                        | service: destination node id
//	bit 7      message: reserved (0)
//	bit 6:0    source node id (0x7F for anonymous)
const (
	priorityShift = 26
	priorityMask  = 0x7

	serviceFlagBit   = 1 << 25
	anonymousFlagBit = 1 << 24
	requestFlagBit   = 1 << 24

	subjectShift = 8
	subjectMask  = 0x1FFF

	serviceShift = 14
	serviceMask  = 0x1FF

	destinationShift = 7
	destinationMask  = 0x7F

	sourceMask = 0x7F

	messageReservedMask uint32 = 0x3 << 22 // bits 23:22
	messageReservedBit7 uint32 = 1 << 7
	serviceReservedBit  uint32 = 1 << 23 // bit 23, above the 9-bit service id field
)

// BuildMessageID builds the 29-bit CAN ID for a message (subject) transfer.
// When anonymous is true, source is ignored and the anonymous node id
// (0x7F) is used in its place; no pseudo-random value (such as one from
// RandomizeAnonymous) is placed into the ID.
func BuildMessageID(priority uint8, subject uint16, source uint8, anonymous bool) uint32 {
	id := uint32(priority&priorityMask) << priorityShift
	id |= uint32(subject&subjectMask) << subjectShift
	src := source & sourceMask
	if anonymous {
		id |= anonymousFlagBit
		src = AnonymousNode
	}
	id |= uint32(src)
	return id
}

// BuildServiceID builds the 29-bit CAN ID for a service (request/response)
// transfer.
func BuildServiceID(priority uint8, service uint16, request bool, destination uint8, source uint8) uint32 {
	id := uint32(priority&priorityMask)<<priorityShift | serviceFlagBit
	if request {
		id |= requestFlagBit
	}
	id |= uint32(service&serviceMask) << serviceShift
	id |= uint32(destination&destinationMask) << destinationShift
	id |= uint32(source & sourceMask)
	return id
}

// Classified is the result of Classify: exactly one of the Message or
// Service views is meaningful, selected by Kind. Frames that do not
// conform to the v1.0 reserved-bit layout classify as Invalid and are
// dropped by the receiver without error.
type Classified struct {
	Valid bool

	Kind      TransferKind
	Priority  uint8
	Anonymous bool

	SubjectID uint16 // valid when Kind == Message

	ServiceID   uint16 // valid when Kind == Request or Response
	Destination uint8  // valid when Kind == Request or Response

	Source uint8
}

// Classify decodes a 29-bit CAN ID. Classification is the sole arbitrator
// of inbound frame routing: invalid reserved bits yield Valid == false and
// the frame must be dropped silently, never surfaced as an error.
func Classify(id uint32) Classified {
	id &= 0x1FFFFFFF // 29 bits
	priority := uint8((id >> priorityShift) & priorityMask)
	source := uint8(id & sourceMask)

	if id&serviceFlagBit == 0 {
		// Message.
		if id&messageReservedMask != 0 || id&messageReservedBit7 != 0 {
			return Classified{}
		}
		anonymous := id&anonymousFlagBit != 0
		// The source field is pseudo-random for an anonymous transmitter
		// (collision avoidance, filled in by a PnP allocator collaborator);
		// it is not required to equal AnonymousNode on the wire.
		return Classified{
			Valid:     true,
			Kind:      Message,
			Priority:  priority,
			Anonymous: anonymous,
			SubjectID: uint16((id >> subjectShift) & subjectMask),
			Source:    source,
		}
	}

	// Service.
	if id&serviceReservedBit != 0 {
		return Classified{}
	}
	request := id&requestFlagBit != 0
	kind := Response
	if request {
		kind = Request
	}
	return Classified{
		Valid:       true,
		Kind:        kind,
		Priority:    priority,
		ServiceID:   uint16((id >> serviceShift) & serviceMask),
		Destination: uint8((id >> destinationShift) & destinationMask),
		Source:      source,
	}
}

// RandomizeAnonymous fills the anonymous node id's role for a message CAN
// ID using prng for the pseudo-random bits a PnP allocator collaborator
// would otherwise supply. The anonymous source field itself is always
// 0x7F on the wire; this only exists so callers that need additional
// entropy for e.g. logging/debugging have a single seam to call through.
func RandomizeAnonymous(prng func() uint8) uint8 {
	return prng() & sourceMask
}
