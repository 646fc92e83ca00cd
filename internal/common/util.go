package common

import (
	"crypto/rand"
	"encoding/hex"
)

// referralAlphabet is the character set of generated referral codes.
const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandByteArray returns size bytes from crypto/rand. It panics only if
// the system random source is broken.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates size random bytes and returns them hex-encoded,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeReferralCode returns a random upper-case alphanumeric code of
// ReferralCodeLength characters.
func MakeReferralCode() string {
	raw := GenerateRandByteArray(ReferralCodeLength)
	out := make([]byte, ReferralCodeLength)
	for i, b := range raw {
		out[i] = referralAlphabet[int(b)%len(referralAlphabet)]
	}
	return string(out)
}
