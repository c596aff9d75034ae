package server

import "crypto/rand"

const lobbyCodeLength = 8

// newLobbyCode returns a short shareable code. Uppercase alphanumerics only,
// so codes survive being read aloud and typed back in any case.
func newLobbyCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, lobbyCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}
