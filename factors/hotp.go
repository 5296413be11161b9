// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
)

type hotpParams struct {
	Offset  int    `json:"offset"`
	Counter uint64 `json:"counter"`
	Pad     string `json:"pad"`
	Digits  int    `json:"digits,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

func (p hotpParams) digits() int {
	if p.Digits == 0 {
		return 6
	}
	return p.Digits
}

func (p hotpParams) hash() string {
	if p.Hash == "" {
		return "sha1"
	}
	return p.Hash
}

// HOTP builds the HOTP factor handler (spec.md §4.4.4).
func HOTP(code int) Handler {
	return HandlerFunc(func(fd *policy.FactorDescriptor) (Material, error) {
		if fd == nil || len(fd.Params) == 0 {
			return nil, mfkdferr.Policy("hotp factor is missing params")
		}
		var params hotpParams
		if err := json.Unmarshal(fd.Params, &params); err != nil {
			return nil, mfkdferr.Policy("malformed hotp params: %v", err)
		}
		digits := params.digits()
		m := pow10(digits)
		target := mod(params.Offset+code, m)

		data := make([]byte, 4)
		binary.BigEndian.PutUint32(data, uint32(target))

		return hotpMaterial{params: params, target: target, data: data}, nil
	})
}

type hotpMaterial struct {
	params hotpParams
	target int
	data   []byte
}

func (m hotpMaterial) Data() []byte   { return m.data }
func (m hotpMaterial) Output() Report { return Report{} }

// RotatedParams advances the counter and precomputes the offset so that the
// *next* HOTP code maps back onto the same target (spec.md §4.4.4).
func (m hotpMaterial) RotatedParams(_ []byte) (RotatedParams, error) {
	digits := m.params.digits()
	hash := m.params.hash()
	mdl := pow10(digits)
	nextCounter := m.params.Counter + 1

	pad, err := base64.StdEncoding.DecodeString(m.params.Pad)
	if err != nil {
		return nil, mfkdferr.Factor("hotp pad must be valid base64")
	}
	nextCode, err := primitives.HOTPCode(pad, nextCounter, hash, digits)
	if err != nil {
		return nil, err
	}
	offset := mod(m.target-nextCode, mdl)

	return jsonParams(hotpParams{
		Offset:  offset,
		Counter: nextCounter,
		Pad:     m.params.Pad,
		Digits:  m.params.Digits,
		Hash:    m.params.Hash,
	})
}

// SetupHOTP builds the initial params for an HOTP factor bound to the
// caller-supplied secret (counter 0, offset chosen so that presenting
// counter-0's code reproduces target 0), and the matching target-0 material
// (the setup supplement's leaf constructor).
func SetupHOTP(secret []byte, digits int, hash string) (Material, []byte, error) {
	if hash == "" {
		hash = "sha1"
	}
	if digits == 0 {
		digits = 6
	}
	code0, err := primitives.HOTPCode(secret, 0, hash, digits)
	if err != nil {
		return nil, nil, err
	}
	offset := mod(0-code0, pow10(digits))
	params := hotpParams{
		Offset:  offset,
		Counter: 0,
		Pad:     base64.StdEncoding.EncodeToString(secret),
		Digits:  digits,
		Hash:    hash,
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, 4)
	m := hotpMaterial{params: params, target: 0, data: data}
	return m, raw, nil
}
