package domain

import "crypto/rand"

const (
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	RoomIDLength   = 6
)

// NewRoomID returns a short room code, e.g. "X7K2QF". Uniqueness is enforced
// by the store; callers regenerate on collision.
func NewRoomID() string {
	buf := make([]byte, RoomIDLength)
	if _, err := rand.Read(buf); err != nil {
		panic("roomid: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(buf)
}
