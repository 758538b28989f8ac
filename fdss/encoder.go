package fdss

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Command opcodes. Per-channel opcodes carry the channel in their low nibble.
const (
	opReleaseNote          = 0x00
	opPlayNote             = 0x10
	opSetChannelVolume     = 0x20
	opSetChannelPanning    = 0x30
	opSetChannelPitch      = 0x40
	opSetChannelInstrument = 0x50
	opSetTempo             = 0x80
	opWaitTicks            = 0xA0
	opSetTimeSignature     = 0xFD
	opSetLoopStart         = 0xFE
	opJumpToLoopStart      = 0xFF
)

// The container prologue: a 16-byte header (magic, section count, section
// table offset, section data offset) followed by the section table. The
// section structure is reserved for multi-section files; this encoder always
// emits exactly one section starting at offset 0, so every value here is a
// constant.
const prologueSize = 20

const magic = "FDSS"

// EncodedSize returns the size in bytes of the serialized command.
func (c *Command) EncodedSize() int {
	switch c.Type {
	case ReleaseNoteCommand, SetChannelVolumeCommand, SetChannelPanningCommand,
		SetChannelInstrumentCommand, SetTempoCommand:
		return 2
	case PlayNoteCommand, SetChannelPitchCommand, SetTimeSignatureCommand:
		return 3
	case WaitTicksCommand, SetLoopStartCommand, JumpToLoopStartCommand:
		return 1
	default:
		panic(fmt.Sprintf("unhandled command type %d", c.Type))
	}
}

// toBytes converts the command into the bytes the playback engine executes.
// Channels are 4-bit by construction (MIDI channels are 0-15), so masking
// them into the opcode's low nibble never clobbers the opcode itself.
func (c *Command) toBytes() []byte {
	switch c.Type {
	case ReleaseNoteCommand:
		return []byte{opReleaseNote | c.Channel&maxChannel, c.Key}

	case PlayNoteCommand:
		return []byte{opPlayNote | c.Channel&maxChannel, c.Key, c.Velocity}

	case SetChannelVolumeCommand:
		return []byte{opSetChannelVolume | c.Channel&maxChannel, c.Volume}

	case SetChannelPanningCommand:
		return []byte{opSetChannelPanning | c.Channel&maxChannel, c.Panning}

	case SetChannelPitchCommand:
		// Pitch is a signed 16-bit value stored little-endian after the opcode.
		pitch := uint16(c.Pitch)
		return []byte{opSetChannelPitch | c.Channel&maxChannel, byte(pitch), byte(pitch >> 8)}

	case SetChannelInstrumentCommand:
		return []byte{opSetChannelInstrument | c.Channel&maxChannel, c.Index}

	case SetTempoCommand:
		// The tempo register is 12-bit; its high 4 bits share the opcode byte.
		return []byte{opSetTempo | byte(c.Tempo>>8), byte(c.Tempo & 0xFF)}

	case WaitTicksCommand:
		return []byte{opWaitTicks + byte(c.LUTIndex)}

	case SetTimeSignatureCommand:
		return []byte{opSetTimeSignature, c.Numerator, c.Denominator}

	case SetLoopStartCommand:
		return []byte{opSetLoopStart}

	case JumpToLoopStartCommand:
		return []byte{opJumpToLoopStart}

	default:
		panic(fmt.Sprintf("unhandled command type %d", c.Type))
	}
}

// CalculateSize returns the total size in bytes of the encoded sequence,
// prologue included.
func CalculateSize(commands []Command) int {
	size := prologueSize
	for i := range commands {
		size += commands[i].EncodedSize()
	}
	return size
}

// Encode converts the command sequence into the FDSS binary that the playback
// engine can execute: the container prologue followed by one serialized
// record per command, in order.
func Encode(commands []Command) ([]byte, error) {
	totalSize := CalculateSize(commands)
	buffer := bytes.NewBuffer(make([]byte, 0, totalSize))

	buffer.WriteString(magic)
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], 1) // number of sections, currently forced to 1
	buffer.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], 0) // section table offset: directly after the header
	buffer.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], 4) // section data offset: always 4 while there is one section
	buffer.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], 0) // section table entry 1: starts at the start of the section data
	buffer.Write(word[:])

	for i := range commands {
		buffer.Write(commands[i].toBytes())
	}

	// Sanity check to make sure the output binary is the expected size.
	if buffer.Len() != totalSize {
		return nil, fmt.Errorf("sequence size mismatch: got %d bytes, expected %d", buffer.Len(), totalSize)
	}
	return buffer.Bytes(), nil
}
