// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zisync/zisync/internal/luhn"
)

// DeviceID is the long-form, human-typeable identity of a device (spec §3).
type DeviceID [32]byte

var LocalDeviceID = DeviceID{} // the reserved id=0 device is the zero value

// NewDeviceID derives a device ID from the raw bytes of a device's TLS
// certificate, the same way Syncthing's protocol.NewDeviceID does.
func NewDeviceID(rawCert []byte) DeviceID {
	var n DeviceID
	sum := sha256.Sum256(rawCert)
	copy(n[:], sum[:])
	return n
}

func DeviceIDFromString(s string) (DeviceID, error) {
	var n DeviceID
	err := n.UnmarshalText([]byte(s))
	return n, err
}

// DeviceIDFromUUID derives a protocol DeviceID from a device row's opaque
// uuid the same way NewDeviceID derives one from a certificate: zisync
// devices are identified by a generated uuid rather than a TLS cert, but the
// classifier and transport collaborator still need a fixed-width id to
// compare and log.
func DeviceIDFromUUID(uuid string) DeviceID {
	return NewDeviceID([]byte(uuid))
}

// String returns the canonical chunked, Luhn-checked representation.
func (n DeviceID) String() string {
	id := base32.StdEncoding.EncodeToString(n[:])
	id = strings.TrimRight(id, "=")
	id, err := luhnify(id)
	if err != nil {
		panic(err) // fixed-length input, cannot fail
	}
	return chunkify(id)
}

// Compare orders two device IDs; used to pick the conflict winner in the
// SyncFile classifier (spec §4.6: "winner = lexicographically lower
// device-uuid").
func (n DeviceID) Compare(other DeviceID) int {
	return bytes.Compare(n[:], other[:])
}

func (n DeviceID) Equals(other DeviceID) bool {
	return n.Compare(other) == 0
}

func (n *DeviceID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *DeviceID) UnmarshalText(bs []byte) error {
	id := strings.ToUpper(strings.TrimRight(string(bs), "="))
	id = untypeoify(id)
	id = unchunkify(id)

	switch len(id) {
	case 56:
		unluhned, err := unluhnify(id)
		if err != nil {
			return err
		}
		id = unluhned
		fallthrough
	case 52:
		dec, err := base32.StdEncoding.DecodeString(id + "====")
		if err != nil {
			return err
		}
		copy(n[:], dec)
		return nil
	default:
		return errors.New("device ID invalid: incorrect length")
	}
}

func luhnify(s string) (string, error) {
	if len(s) != 52 {
		panic("unsupported string length")
	}
	res := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		p := s[i*13 : (i+1)*13]
		c, err := luhn.Base32.Generate(p)
		if err != nil {
			return "", err
		}
		res = append(res, fmt.Sprintf("%s%c", p, c))
	}
	return strings.Join(res, ""), nil
}

func unluhnify(s string) (string, error) {
	if len(s) != 56 {
		return "", fmt.Errorf("unsupported string length %d", len(s))
	}
	res := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		p := s[i*14 : (i+1)*14-1]
		c, err := luhn.Base32.Generate(p)
		if err != nil {
			return "", err
		}
		if g := fmt.Sprintf("%s%c", p, c); g != s[i*14:(i+1)*14] {
			return "", errors.New("check digit incorrect")
		}
		res = append(res, p)
	}
	return strings.Join(res, ""), nil
}

var chunkPat = regexp.MustCompile("(.{7})")

func chunkify(s string) string {
	s = chunkPat.ReplaceAllString(s, "$1-")
	return strings.Trim(s, "-")
}

func unchunkify(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

func untypeoify(s string) string {
	s = strings.ReplaceAll(s, "0", "O")
	s = strings.ReplaceAll(s, "1", "I")
	return strings.ReplaceAll(s, "8", "B")
}

// TreeUUIDToVectorID folds a tree-uuid into the uint64 index space a
// Vector uses for its Counter.ID, so vector clocks never need to carry the
// uuid strings themselves on the wire (spec §4.1: "receiver remaps
// positions via an index table").
func TreeUUIDToVectorID(treeUUID string) uint64 {
	sum := sha256.Sum256([]byte(treeUUID))
	return binary.BigEndian.Uint64(sum[:8])
}
