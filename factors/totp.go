// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"time"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
)

type totpParams struct {
	Offsets string `json:"offsets"`
	Start   int64  `json:"start"`
	Window  int    `json:"window"`
	Digits  int    `json:"digits,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Step    int    `json:"step,omitempty"`
	Pad     string `json:"pad"`
}

func (p totpParams) digits() int {
	if p.Digits == 0 {
		return 6
	}
	return p.Digits
}

func (p totpParams) hash() string {
	if p.Hash == "" {
		return "sha1"
	}
	return p.Hash
}

func (p totpParams) step() int {
	if p.Step == 0 {
		return 30
	}
	return p.Step
}

// TOTP builds the TOTP factor handler (spec.md §4.4.5). timeMillis is the
// wall-clock instant (ms since epoch) the code was read at; zero defaults to
// time.Now.
func TOTP(code int, timeMillis int64) Handler {
	return HandlerFunc(func(fd *policy.FactorDescriptor) (Material, error) {
		if fd == nil || len(fd.Params) == 0 {
			return nil, mfkdferr.Policy("totp factor is missing params")
		}
		var params totpParams
		if err := json.Unmarshal(fd.Params, &params); err != nil {
			return nil, mfkdferr.Policy("malformed totp params: %v", err)
		}
		if timeMillis <= 0 {
			timeMillis = time.Now().UnixMilli()
		}
		offsets, err := base64.StdEncoding.DecodeString(params.Offsets)
		if err != nil {
			return nil, mfkdferr.Factor("totp offsets must be valid base64")
		}
		step := int64(params.step())
		startCounter := params.Start / (step * 1000)
		nowCounter := timeMillis / (step * 1000)
		index := nowCounter - startCounter
		if index < 0 || index >= int64(params.Window) {
			return nil, mfkdferr.Factor("TOTP window exceeded")
		}
		offsetStart := 4 * index
		if offsetStart+4 > int64(len(offsets)) {
			return nil, mfkdferr.Factor("totp offsets buffer too short for window")
		}
		offset := binary.BigEndian.Uint32(offsets[offsetStart : offsetStart+4])
		digits := params.digits()
		target := mod(int(offset)+code, pow10(digits))

		data := make([]byte, 4)
		binary.BigEndian.PutUint32(data, uint32(target))

		return totpMaterial{params: params, target: target, nowCounter: nowCounter, time: timeMillis, data: data}, nil
	})
}

type totpMaterial struct {
	params     totpParams
	target     int
	nowCounter int64
	time       int64
	data       []byte
}

func (m totpMaterial) Data() []byte   { return m.data }
func (m totpMaterial) Output() Report { return Report{} }

// RotatedParams recomputes the whole offsets buffer for the next window
// positions starting at the current counter, and advances start to the
// observed time (spec.md §4.4.5).
func (m totpMaterial) RotatedParams(_ []byte) (RotatedParams, error) {
	digits := m.params.digits()
	hash := m.params.hash()
	mdl := pow10(digits)
	window := m.params.Window

	pad, err := base64.StdEncoding.DecodeString(m.params.Pad)
	if err != nil {
		return nil, mfkdferr.Factor("totp pad must be valid base64")
	}
	offsets := make([]byte, 4*window)
	for i := 0; i < window; i++ {
		counter := uint64(m.nowCounter + int64(i))
		code, err := primitives.TOTPCode(pad, counter, hash, digits)
		if err != nil {
			return nil, err
		}
		off := mod(m.target-code, mdl)
		binary.BigEndian.PutUint32(offsets[4*i:4*i+4], uint32(off))
	}

	return jsonParams(totpParams{
		Offsets: base64.StdEncoding.EncodeToString(offsets),
		Start:   m.time,
		Window:  window,
		Digits:  m.params.Digits,
		Hash:    m.params.Hash,
		Step:    m.params.Step,
		Pad:     m.params.Pad,
	})
}

// SetupTOTP builds the initial offsets buffer for a TOTP factor bound to the
// caller-supplied secret, so that a code read at start (or at any later step
// inside the window) reproduces target 0, and the matching target-0 material
// (the setup supplement's leaf constructor). start defaults to time.Now when
// zero.
func SetupTOTP(secret []byte, digits int, hash string, step, window int, start int64) (Material, []byte, error) {
	if hash == "" {
		hash = "sha1"
	}
	if digits == 0 {
		digits = 6
	}
	if step == 0 {
		step = 30
	}
	if window == 0 {
		window = 87600
	}
	if start <= 0 {
		start = time.Now().UnixMilli()
	}
	startCounter := start / (int64(step) * 1000)
	mdl := pow10(digits)
	offsets := make([]byte, 4*window)
	for i := 0; i < window; i++ {
		counter := uint64(startCounter + int64(i))
		code, err := primitives.TOTPCode(secret, counter, hash, digits)
		if err != nil {
			return nil, nil, err
		}
		off := mod(0-code, mdl)
		binary.BigEndian.PutUint32(offsets[4*i:4*i+4], uint32(off))
	}
	params := totpParams{
		Offsets: base64.StdEncoding.EncodeToString(offsets),
		Start:   start,
		Window:  window,
		Digits:  digits,
		Hash:    hash,
		Step:    step,
		Pad:     base64.StdEncoding.EncodeToString(secret),
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, 4)
	m := totpMaterial{params: params, target: 0, nowCounter: startCounter, time: start, data: data}
	return m, raw, nil
}
