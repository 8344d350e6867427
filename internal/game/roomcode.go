/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"crypto/rand"
	"strings"
)

const (
	// RoomCodeAlphabet leaves out 0, O, 1 and I.
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 4
)

// NewRoomCode returns a random room code.
func NewRoomCode() string {
	buf := make([]byte, RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("A", RoomCodeLength)
	}
	for i := range buf {
		// 256 is a multiple of 32, so the modulo is unbiased.
		buf[i] = RoomCodeAlphabet[int(buf[i])%len(RoomCodeAlphabet)]
	}
	return string(buf)
}

// ValidRoomCode reports whether code could have come from NewRoomCode.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(RoomCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// NormalizeRoomCode upper-cases and trims user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
