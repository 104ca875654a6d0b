// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------+
| Field             | Data Type | Size (Bytes) | Description        |
|-------------------|-----------|--------------|--------------------|
| Sequence Number   | uint32    | 4            | Starts at 1        |
| Timestamp         | int64     | 8            | Nanoseconds since epoch |
| BPM               | float32   | 4            | Displayed tempo    |
| Volume            | float32   | 4            | Displayed loudness |
| Theta             | float32   | 4            | Rotation in [0, 2π]|
| Lens              | float32   | 4            | Lens distance      |
| Sign              | float32   | 4            | Rotation direction |
| Accuracy          | float32   | 4            | Tempo accuracy     |
+-----------------------------------------------------------------+
*/

// PacketSize is the encoded length of a Packet.
const PacketSize = 36

// Packet is one render state snapshot on the wire.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	BPM       float32
	Volume    float32
	Theta     float32
	Lens      float32
	Sign      float32
	Accuracy  float32
}

// DecodePacket parses a packet produced by the publisher.
func DecodePacket(b []byte) (Packet, error) {
	var p Packet
	if len(b) != PacketSize {
		return p, fmt.Errorf("udp: packet is %d bytes, want %d", len(b), PacketSize)
	}
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &p)
	return p, err
}
