package fdss

import "fmt"

const maxTempo = (1 << 12) - 1
const maxChannel = (1 << 4) - 1

type CommandType int

const (
	ReleaseNoteCommand          CommandType = iota // Release a playing note on a channel.
	PlayNoteCommand                                // Start playing a note on a channel.
	SetChannelVolumeCommand                        // Set the volume of a channel.
	SetChannelPanningCommand                       // Set the stereo panning of a channel.
	SetChannelPitchCommand                         // Set the pitch offset of a channel, in 10ths of a cent.
	SetChannelInstrumentCommand                    // Set the instrument index of a channel.
	SetTempoCommand                                // Set the sequencer tempo register.
	WaitTicksCommand                               // Wait for one of the 32 fixed tick durations.
	SetTimeSignatureCommand                        // Set the time signature (informational for the engine).
	SetLoopStartCommand                            // Mark the loop start point.
	JumpToLoopStartCommand                         // Jump back to the loop start point.
)

// No need for an isValid for CommandType as commands are only built through the constructor functions.

// WaitTickLUT is the fixed table of tick durations a single WaitTicks command can
// represent. The playback engine carries the same table, so a WaitTicks command
// only stores an index into it. The table is structured so that greedy
// largest-first decomposition of a gap always sums back to the exact gap.
var WaitTickLUT = [32]uint16{
	1, 2, 3, 4, 6, 8, 12, 16,
	20, 24, 28, 32, 40, 48, 56, 64,
	80, 96, 112, 128, 160, 192, 224, 256,
	320, 384, 448, 512, 640, 768, 896, 1024,
}

// A single FDSS sequence command. Commands are fixed-shape records; only the
// fields relevant to the Type are meaningful. Construct them with the
// constructor functions below rather than filling the struct directly.
type Command struct {
	Type CommandType

	Channel  uint8 // For per-channel commands: the MIDI channel (4-bit).
	Key      uint8 // For ReleaseNote, PlayNote: the note number.
	Velocity uint8 // For PlayNote: the note velocity.

	Volume  uint8 // For SetChannelVolume: the channel volume (0-127).
	Panning uint8 // For SetChannelPanning: the channel panning (0-254).
	Pitch   int16 // For SetChannelPitch: pitch offset in 10ths of a cent.
	Index   uint8 // For SetChannelInstrument: the instrument bank index.

	Tempo    uint16 // For SetTempo: the tempo register value (12-bit).
	LUTIndex int    // For WaitTicks: index into WaitTickLUT.

	Numerator   uint8 // For SetTimeSignature.
	Denominator uint8 // For SetTimeSignature.
}

// ReleaseNote builds a command releasing a note on a channel.
func ReleaseNote(channel, key uint8) Command {
	return Command{Type: ReleaseNoteCommand, Channel: channel, Key: key}
}

// PlayNote builds a command starting a note on a channel.
func PlayNote(channel, key, velocity uint8) Command {
	return Command{Type: PlayNoteCommand, Channel: channel, Key: key, Velocity: velocity}
}

// SetChannelVolume builds a command setting the volume of a channel.
func SetChannelVolume(channel, volume uint8) Command {
	return Command{Type: SetChannelVolumeCommand, Channel: channel, Volume: volume}
}

// SetChannelPanning builds a command setting the panning of a channel.
func SetChannelPanning(channel, panning uint8) Command {
	return Command{Type: SetChannelPanningCommand, Channel: channel, Panning: panning}
}

// SetChannelPitch builds a command setting the pitch offset of a channel,
// expressed in 10ths of a cent.
func SetChannelPitch(channel uint8, pitch int16) Command {
	return Command{Type: SetChannelPitchCommand, Channel: channel, Pitch: pitch}
}

// SetChannelInstrument builds a command setting the instrument of a channel.
func SetChannelInstrument(channel, index uint8) Command {
	return Command{Type: SetChannelInstrumentCommand, Channel: channel, Index: index}
}

// SetTempo builds a command setting the tempo register (12-bit).
func SetTempo(tempo uint16) Command {
	return Command{Type: SetTempoCommand, Tempo: tempo & maxTempo}
}

// WaitTicks builds a command waiting for WaitTickLUT[index] ticks.
func WaitTicks(index int) Command {
	return Command{Type: WaitTicksCommand, LUTIndex: index}
}

// SetTimeSignature builds a command setting the time signature.
func SetTimeSignature(numerator, denominator uint8) Command {
	return Command{Type: SetTimeSignatureCommand, Numerator: numerator, Denominator: denominator}
}

// SetLoopStart builds a command marking the loop start point.
// The translator never emits it; it is reserved for future loop-point support.
func SetLoopStart() Command {
	return Command{Type: SetLoopStartCommand}
}

// JumpToLoopStart builds a command jumping back to the loop start point.
// The translator never emits it; it is reserved for future loop-point support.
func JumpToLoopStart() Command {
	return Command{Type: JumpToLoopStartCommand}
}

func (c *Command) String() string {
	switch c.Type {
	case ReleaseNoteCommand:
		return fmt.Sprintf("ch%d release key %d", c.Channel, c.Key)
	case PlayNoteCommand:
		return fmt.Sprintf("ch%d play key %d vel %d", c.Channel, c.Key, c.Velocity)
	case SetChannelVolumeCommand:
		return fmt.Sprintf("ch%d volume %d", c.Channel, c.Volume)
	case SetChannelPanningCommand:
		return fmt.Sprintf("ch%d panning %d", c.Channel, c.Panning)
	case SetChannelPitchCommand:
		return fmt.Sprintf("ch%d pitch %+d", c.Channel, c.Pitch)
	case SetChannelInstrumentCommand:
		return fmt.Sprintf("ch%d instrument %d", c.Channel, c.Index)
	case SetTempoCommand:
		return fmt.Sprintf("tempo 0x%03x", c.Tempo)
	case WaitTicksCommand:
		return fmt.Sprintf("wait %d ticks", WaitTickLUT[c.LUTIndex])
	case SetTimeSignatureCommand:
		return fmt.Sprintf("time signature %d/%d", c.Numerator, c.Denominator)
	case SetLoopStartCommand:
		return "loop start"
	case JumpToLoopStartCommand:
		return "jump to loop start"
	default:
		return ""
	}
}
