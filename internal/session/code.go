package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// Room codes are 4-digit decimal numbers without a leading zero.
const (
	CodeMin   = 1000
	CodeMax   = 9999
	CodeSpace = CodeMax - CodeMin + 1

	// maxRandomDraws bounds the random attempts before falling back to a scan.
	maxRandomDraws = 32
)

// ValidCode reports whether s is well-formed as a room code.
func ValidCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[0] != '0'
}

// generateCode picks an unused code. Collisions with live rooms are redrawn;
// once the random draws are spent it walks the code space from a random
// offset, so it terminates even when the registry is nearly full.
// The caller must hold m.mu.
func (m *Manager) generateCode() (string, error) {
	if len(m.rooms) >= CodeSpace {
		return "", ErrCodeSpaceExhausted
	}

	for range maxRandomDraws {
		code := formatCode(m.randIndex(CodeSpace))
		if _, ok := m.rooms[code]; !ok {
			return code, nil
		}
		m.log.Debug("room code collision, regenerating", "code", code)
	}

	start := m.randIndex(CodeSpace)
	for i := range CodeSpace {
		code := formatCode((start + i) % CodeSpace)
		if _, ok := m.rooms[code]; !ok {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func formatCode(offset int) string {
	return strconv.Itoa(CodeMin + offset)
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to generate random index: %v", err))
	}
	return int(n.Int64())
}
