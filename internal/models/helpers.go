package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return uuid.New().String()
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// GenerateSeed produces the per-session oddseed: 256 bits of entropy, hex
// encoded. It is committed to via its hash at session start and only revealed
// once the session is terminal.
func GenerateSeed() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashSeed is the one-way commitment published at session start. Verifiers
// recompute it from the revealed seed after the session ends.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// GenerateNonce produces an opaque single-use claim or login token.
func GenerateNonce() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}
