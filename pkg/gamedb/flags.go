package gamedb

// Flag register numbers used by the interpreter core.
const (
	FlagDark       = 0
	FlagNOCarr     = 1
	FlagTurnsLo    = 31
	FlagTurnsHi    = 32
	FlagVerb       = 33
	FlagNoun1      = 34
	FlagAdject1    = 35
	FlagAdverb     = 36
	FlagMaxCarr    = 37
	FlagPlayer     = 38
	FlagO2Con      = 39
	FlagPrompt     = 41
	FlagPrep       = 42
	FlagNoun2      = 43
	FlagAdject2    = 44
	FlagCPNoun     = 46
	FlagCPAdject   = 47
	FlagTime       = 48
	FlagTIFlags    = 49
	FlagDoAll      = 50
	FlagCONum      = 51
	FlagStrength   = 52
	FlagObjFlags   = 53
	FlagCOLoc      = 54
	FlagCOWei      = 55
	FlagCOCon      = 56
	FlagCOWR       = 57
	FlagCOAtt      = 58
	FlagCOAtt2     = 59
	FlagKey1       = 60
	FlagKey2       = 61
	FlagScreenMode = 62
	FlagCurWin     = 63
)

// Timeout control bits of FlagTIFlags.
const (
	TimeFirstChar = 0x01
	TimeMore      = 0x02
	TimeAnyKey    = 0x04
	TimeTimeout   = 0x80
)

// NumFlags is the size of the register file.
const NumFlags = 256

// Flags is the interpreter's register file. Raw access is by number;
// the accessors below name the registers the core reads and writes.
type Flags struct {
	regs [NumFlags]uint8
}

// Get returns register n.
func (f *Flags) Get(n uint8) uint8 { return f.regs[n] }

// Set stores v in register n.
func (f *Flags) Set(n, v uint8) { f.regs[n] = v }

// Clear zeroes every register.
func (f *Flags) Clear() { f.regs = [NumFlags]uint8{} }

// Bytes returns a copy of the register file.
func (f *Flags) Bytes() []byte {
	out := make([]byte, NumFlags)
	copy(out, f.regs[:])
	return out
}

// Restore loads the register file from the first NumFlags bytes of b.
func (f *Flags) Restore(b []byte) {
	copy(f.regs[:], b)
}

func (f *Flags) Verb() uint8        { return f.regs[FlagVerb] }
func (f *Flags) Noun1() uint8       { return f.regs[FlagNoun1] }
func (f *Flags) Adjective1() uint8  { return f.regs[FlagAdject1] }
func (f *Flags) Adverb() uint8      { return f.regs[FlagAdverb] }
func (f *Flags) Preposition() uint8 { return f.regs[FlagPrep] }
func (f *Flags) Noun2() uint8       { return f.regs[FlagNoun2] }
func (f *Flags) Adjective2() uint8  { return f.regs[FlagAdject2] }

func (f *Flags) SetVerb(v uint8)        { f.regs[FlagVerb] = v }
func (f *Flags) SetNoun1(v uint8)       { f.regs[FlagNoun1] = v }
func (f *Flags) SetAdjective1(v uint8)  { f.regs[FlagAdject1] = v }
func (f *Flags) SetAdverb(v uint8)      { f.regs[FlagAdverb] = v }
func (f *Flags) SetPreposition(v uint8) { f.regs[FlagPrep] = v }
func (f *Flags) SetNoun2(v uint8)       { f.regs[FlagNoun2] = v }
func (f *Flags) SetAdjective2(v uint8)  { f.regs[FlagAdject2] = v }

// ClearSentence sets every sentence slot, and the pronoun noun and
// adjective, to NullWord.
func (f *Flags) ClearSentence() {
	for _, n := range []uint8{FlagVerb, FlagNoun1, FlagAdject1, FlagAdverb, FlagPrep, FlagNoun2, FlagAdject2, FlagCPNoun, FlagCPAdject} {
		f.regs[n] = NullWord
	}
}

// SetO2Container records whether the second noun names a container.
func (f *Flags) SetO2Container(on bool) {
	f.regs[FlagO2Con] = boolByte(on)
}

// O2Container reports the value stored by SetO2Container.
func (f *Flags) O2Container() bool { return f.regs[FlagO2Con] != 0 }

// CarriedCount is the number of objects carried (not worn).
func (f *Flags) CarriedCount() uint8     { return f.regs[FlagNOCarr] }
func (f *Flags) SetCarriedCount(n uint8) { f.regs[FlagNOCarr] = n }

// Prompt is the system message used as prompt; 0 picks one at random.
func (f *Flags) Prompt() uint8 { return f.regs[FlagPrompt] }

// Timeout returns the timeout length (in seconds) and the control bits.
func (f *Flags) Timeout() (uint8, uint8) { return f.regs[FlagTime], f.regs[FlagTIFlags] }

// TimedOut reports whether the last wait ended by timeout.
func (f *Flags) TimedOut() bool { return f.regs[FlagTIFlags]&TimeTimeout != 0 }

// SetTimedOut sets or clears the timeout-occurred bit.
func (f *Flags) SetTimedOut(on bool) {
	if on {
		f.regs[FlagTIFlags] |= TimeTimeout
	} else {
		f.regs[FlagTIFlags] &^= TimeTimeout
	}
}

// CurrentWindow is the active text window.
func (f *Flags) CurrentWindow() uint8 { return f.regs[FlagCurWin] }

// ReferencedObject is the object last referenced by a sentence.
func (f *Flags) ReferencedObject() uint8 { return f.regs[FlagCONum] }

// Turns returns the 16-bit turn counter.
func (f *Flags) Turns() uint16 {
	return uint16(f.regs[FlagTurnsHi])<<8 | uint16(f.regs[FlagTurnsLo])
}

// IncTurns advances the turn counter, wrapping at 65535.
func (f *Flags) IncTurns() {
	t := f.Turns() + 1
	f.regs[FlagTurnsLo] = uint8(t)
	f.regs[FlagTurnsHi] = uint8(t >> 8)
}

// setBit7 stores on in bit 7 of register n, keeping bits 0-6.
func (f *Flags) setBit7(n uint8, on bool) {
	f.regs[n] = f.regs[n]&0x7F | boolByte(on)<<7
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
