package services

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureHash applies the EIP-191 personal-message prefix and hashes with
// Keccak-256, matching what wallets sign via personal_sign.
func SignatureHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverSigner recovers the address that personal-signed message. The
// signature is the usual 65-byte r||s||v hex blob, with v accepted as either
// 0/1 or 27/28.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: malformed signature hex", ErrSignatureInvalid)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("%w: signature must be 65 bytes, got %d", ErrSignatureInvalid, len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(SignatureHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// NormalizeAddress canonicalizes a hex address to its lowercase form; owner
// identities and recovered signers are always compared in this form.
func NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}
