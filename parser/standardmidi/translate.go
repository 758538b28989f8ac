package standardmidi

import (
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"

	"github.com/flanseq/midi2psx/fdss"
)

// The playback engine's fixed tick-rate scaling constant: the tempo register
// stores round(secondsPerTick * 49152), clamped to 12 bits.
const tickLengthMultiplier = 49152

const percussionChannel = 9

// MIDI controller numbers the translator recognises.
const (
	ccDataEntryMSB = 6
	ccVolume       = 7
	ccPan          = 10
	ccDataEntryLSB = 38
	ccRPNLSB       = 100
	ccRPNMSB       = 101
)

// Options configure translation behaviour.
type Options struct {
	// PercussionBankOffset offsets program changes on the MIDI percussion
	// channel (channel 9) by 128, selecting the engine's percussion
	// instrument bank instead of the melodic one.
	PercussionBankOffset bool
}

// DefaultOptions returns the options used by the midi2psx tool.
func DefaultOptions() Options {
	return Options{PercussionBankOffset: true}
}

// Translator converts a merged Timeline into the FDSS command sequence.
//
// It carries two kinds of state across the walk: prevTick, the last tick
// already accounted for as wait time, and the pitch bend range (coarse
// semitones + fine cents, default 2/0) which only changes through the RPN 0
// selection protocol. The RPN selector values themselves (controllers
// 100/101) are transient per tick group and live in the event loop, not here.
type Translator struct {
	logger *zap.Logger
	opts   Options

	prevTick        uint32
	bendRangeCoarse uint8 // semitones
	bendRangeFine   uint8 // cents

	skipped int

	// Whether or not the translator has already been used.
	// Translation can only be done once per Translator.
	used bool
}

// NewTranslator creates a translator. A nil logger disables diagnostics.
func NewTranslator(logger *zap.Logger, opts Options) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		logger:          logger,
		opts:            opts,
		bendRangeCoarse: 2,
		bendRangeFine:   0,
	}
}

// Translate walks the timeline in ascending tick order and produces the FDSS
// command sequence: for each tick, first enough WaitTicks commands to cover
// the gap since the previous tick, then one command per recognised event in
// event order. Unrecognised events are skipped and logged at debug level.
//
// timeFormat is the file-level time division. It must be metric
// (ticks per quarter note) if the file contains a tempo event; a timecode
// division makes the tempo conversion undefined and fails the whole file.
func (t *Translator) Translate(tl *Timeline, timeFormat smf.TimeFormat) ([]fdss.Command, error) {
	if t.used {
		return nil, fmt.Errorf("translator already used")
	}
	t.used = true

	var commands []fdss.Command
	for _, tick := range tl.Ticks() {
		if tick != t.prevTick {
			commands = appendWaits(commands, tick-t.prevTick)
		}
		t.prevTick = tick

		// RPN parameter selectors, scoped to this tick group only.
		// -1 means unset, so a data entry before any selection is ignored.
		cc100, cc101 := -1, -1

		for _, msg := range tl.EventsAt(tick) {
			cmd, ok, err := t.translateEvent(msg, timeFormat, &cc100, &cc101)
			if err != nil {
				return nil, err
			}
			if ok {
				commands = append(commands, cmd)
			}
		}
	}

	if t.skipped > 0 {
		t.logger.Info("skipped unsupported events", zap.Int("count", t.skipped))
	}
	return commands, nil
}

// appendWaits appends WaitTicks commands covering a gap of the given number
// of ticks. The gap is decomposed greedily: repeatedly take the largest LUT
// duration that still fits. The LUT is built so this always sums back to the
// exact gap, and its smallest entry is 1 tick so the loop always terminates.
func appendWaits(commands []fdss.Command, gap uint32) []fdss.Command {
	for gap > 0 {
		for index := len(fdss.WaitTickLUT) - 1; index >= 0; index-- {
			if uint32(fdss.WaitTickLUT[index]) <= gap {
				gap -= uint32(fdss.WaitTickLUT[index])
				commands = append(commands, fdss.WaitTicks(index))
				break
			}
		}
	}
	return commands
}

// translateEvent maps a single MIDI event onto an FDSS command. ok reports
// whether the event produced a command; controller events may instead update
// translator or selector state, and unsupported events produce nothing.
func (t *Translator) translateEvent(msg smf.Message, timeFormat smf.TimeFormat, cc100, cc101 *int) (fdss.Command, bool, error) {
	var channel, key, velocity uint8
	var program, controller, controllerValue uint8
	var bendRelative int16
	var bendAbsolute uint16
	var bpm float64
	var numerator, denominator uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return fdss.PlayNote(channel, key, velocity), true, nil

	case msg.GetNoteOff(&channel, &key, &velocity):
		// Release velocity is discarded.
		return fdss.ReleaseNote(channel, key), true, nil

	case msg.GetProgramChange(&channel, &program):
		index := program
		if t.opts.PercussionBankOffset && channel == percussionChannel {
			index = program + 128
		}
		return fdss.SetChannelInstrument(channel, index), true, nil

	case msg.GetPitchBend(&channel, &bendRelative, &bendAbsolute):
		normalized := float64(bendRelative) / 8192.0
		return fdss.SetChannelPitch(channel, bendPitch(t.bendRangeCoarse, t.bendRangeFine, normalized)), true, nil

	case msg.GetControlChange(&channel, &controller, &controllerValue):
		return t.translateController(channel, controller, controllerValue, cc100, cc101)

	case msg.GetMetaTempo(&bpm):
		metricTicks, ok := timeFormat.(smf.MetricTicks)
		if !ok {
			return fdss.Command{}, false, fmt.Errorf("tempo change requires a metric time division, file uses %v", timeFormat)
		}
		return fdss.SetTempo(tempoRawValue(bpm, float64(metricTicks))), true, nil

	case msg.GetMetaMeter(&numerator, &denominator):
		return fdss.SetTimeSignature(numerator, denominator), true, nil

	default:
		t.logger.Debug("unsupported event", zap.String("message", msg.String()))
		t.skipped++
		return fdss.Command{}, false, nil
	}
}

// translateController handles the recognised controllers: volume and pan map
// straight to commands, while controllers 100/101/6/38 form the minimal RPN
// state machine that maintains the pitch bend range. Data entry only applies
// when RPN 0 (pitch bend range) is selected by both selectors in the current
// tick group.
func (t *Translator) translateController(channel, controller, value uint8, cc100, cc101 *int) (fdss.Command, bool, error) {
	switch controller {
	case ccVolume:
		return fdss.SetChannelVolume(channel, value), true, nil

	case ccPan:
		// Rescale 0-127 to the engine's 0-254 panning range.
		return fdss.SetChannelPanning(channel, value*2), true, nil

	case ccRPNLSB:
		*cc100 = int(value)

	case ccRPNMSB:
		*cc101 = int(value)

	case ccDataEntryMSB:
		if *cc100 == 0 && *cc101 == 0 {
			t.bendRangeCoarse = value
		}

	case ccDataEntryLSB:
		if *cc100 == 0 && *cc101 == 0 {
			t.bendRangeFine = value
		}

	default:
		t.logger.Debug("unsupported controller",
			zap.Uint8("controller", controller),
			zap.Uint8("value", value))
		t.skipped++
	}
	return fdss.Command{}, false, nil
}

// bendPitch converts a normalized pitch bend (-1..1) into the engine's signed
// 10ths-of-a-cent pitch value, given the current bend range. The final cast
// truncates toward zero.
func bendPitch(coarse, fine uint8, normalized float64) int16 {
	rangeCents := float64(coarse)*100 + float64(fine)
	return int16(rangeCents * 10 * normalized)
}

// tempoRawValue converts a tempo in beats per minute into the engine's tempo
// register value: round(secondsPerTick * 49152), clamped to 0..4095.
func tempoRawValue(bpm, ticksPerQuarterNote float64) uint16 {
	microsecondsPerQuarterNote := 60_000_000.0 / bpm
	microsecondsPerTick := microsecondsPerQuarterNote / ticksPerQuarterNote
	secondsPerTick := microsecondsPerTick / 1_000_000.0
	raw := math.Round(secondsPerTick * tickLengthMultiplier)
	return uint16(min(max(raw, 0), 4095))
}
