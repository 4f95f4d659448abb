package engine

import (
	"strconv"

	"github.com/crystal-mush/godaad/pkg/ddb"
)

// PrintSystemMsg prints system message n.
func (s *Session) PrintSystemMsg(n uint8) error {
	_, err := s.dec.Decode(ddb.ListSystemMessages, n, true)
	return err
}

// SystemMsg returns system message n without printing it.
func (s *Session) SystemMsg(n uint8) (string, error) {
	return s.dec.Decode(ddb.ListSystemMessages, n, false)
}

// PrintUserMsg prints user message n.
func (s *Session) PrintUserMsg(n uint8) error {
	_, err := s.dec.Decode(ddb.ListUserMessages, n, true)
	return err
}

// PrintLocation prints the description of location n.
func (s *Session) PrintLocation(n uint8) error {
	_, err := s.dec.Decode(ddb.ListLocations, n, true)
	return err
}

// PrintObject prints the name of object n as stored.
func (s *Session) PrintObject(n uint8) error {
	_, err := s.dec.Decode(ddb.ListObjects, n, true)
	return err
}

// PrintNumber prints v in decimal.
func (s *Session) PrintNumber(v uint16) {
	s.WriteString(strconv.FormatUint(uint64(v), 10))
}

// Newline ends the current output line.
func (s *Session) Newline() {
	s.WriteChar('\n')
}

// referencedName renders the referenced object for the '_' and '@'
// escapes of a message.
func (s *Session) referencedName(capital bool) (string, error) {
	return s.dec.ObjectName(s.Flags.ReferencedObject(), s.articles, capital)
}
