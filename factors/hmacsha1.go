// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
)

type hmacsha1Params struct {
	Pad       string `json:"pad"`
	Challenge string `json:"challenge,omitempty"`
}

// HMACSHA1 builds the HMAC-SHA1 challenge/response factor handler (spec.md
// §4.4.3): response is the 20-byte answer an external token computed over
// the descriptor's previously-committed challenge.
func HMACSHA1(response []byte) Handler {
	return HandlerFunc(func(fd *policy.FactorDescriptor) (Material, error) {
		if len(response) != 20 {
			return nil, mfkdferr.Factor("hmacsha1 response must be exactly 20 bytes")
		}
		var params hmacsha1Params
		if fd == nil || len(fd.Params) == 0 {
			return nil, mfkdferr.Policy("hmacsha1 factor is missing params")
		}
		if err := json.Unmarshal(fd.Params, &params); err != nil {
			return nil, mfkdferr.Policy("malformed hmacsha1 params: %v", err)
		}
		pad, err := hex.DecodeString(params.Pad)
		if err != nil || len(pad) != 20 {
			return nil, mfkdferr.Factor("hmacsha1 pad must be 20 bytes of hex")
		}
		secretSlot := make([]byte, 20)
		for i := range secretSlot {
			secretSlot[i] = response[i] ^ pad[i]
		}
		return hmacsha1Material{secretSlot: secretSlot}, nil
	})
}

type hmacsha1Material struct {
	secretSlot []byte
}

func (m hmacsha1Material) Data() []byte   { return m.secretSlot }
func (m hmacsha1Material) Output() Report { return Report{} }

// RotatedParams pre-commits a fresh challenge and the pad that will let the
// next authentication recover the same secretSlot from the token's response
// to that new challenge (spec.md §4.4.3).
func (m hmacsha1Material) RotatedParams(_ []byte) (RotatedParams, error) {
	challenge := make([]byte, 64)
	if _, err := rand.Read(challenge); err != nil {
		return nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "challenge generation failed", err)
	}
	mac, err := primitives.HMAC("sha1", m.secretSlot, challenge)
	if err != nil {
		return nil, err
	}
	pad := make([]byte, 20)
	for i := range pad {
		pad[i] = mac[i] ^ m.secretSlot[i]
	}
	return jsonParams(hmacsha1Params{
		Pad:       hex.EncodeToString(pad),
		Challenge: hex.EncodeToString(challenge),
	})
}

// SetupHMACSHA1 generates a fresh random secretSlot, a first challenge, and
// the pad binding them, returning the initial material and params a new
// hmacsha1 factor needs (the setup supplement's leaf constructor).
func SetupHMACSHA1() (Material, []byte, error) {
	secretSlot := make([]byte, 20)
	if _, err := rand.Read(secretSlot); err != nil {
		return nil, nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "secret generation failed", err)
	}
	m := hmacsha1Material{secretSlot: secretSlot}
	rotated, err := m.RotatedParams(nil)
	if err != nil {
		return nil, nil, err
	}
	rp, ok := rotated.(rawParams)
	if !ok {
		return nil, nil, mfkdferr.Setup("unexpected hmacsha1 params shape")
	}
	return m, rp.data, nil
}
