// Package oob handles the telnet layer of TCP sessions: it strips telnet
// commands from player input and sends session events to clients that
// accept GMCP (Generic MUD Communication Protocol).
package oob

// Telnet protocol constants.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240 // Subnegotiation End

	TeloptGMCP byte = 201
)
