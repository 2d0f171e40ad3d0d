package proto

import (
	"encoding/binary"
	"errors"

	"github.com/roiedanino/ucx/pkg/lane"
)

// SelectionSize is the exact encoded size of a Selection. The PrivSize
// handshake reports it so the caller can allocate the blob precisely.
const SelectionSize = 17

// Selection is the priv blob produced once per configuration build:
// which lanes to use and which memory domains they require. Immutable
// after the build; steady-state behaviors read it verbatim.
type Selection struct {
	// RegDomains are the memory domains to register on.
	RegDomains lane.DomainMap
	// Lanes is the map of lanes to use.
	Lanes lane.Map
	// NumLanes is the number of lanes in the map.
	NumLanes uint8
}

// MarshalBinary encodes the fixed layout: reg-domain map (u64 LE),
// lane map (u64 LE), lane count (u8).
func (s Selection) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SelectionSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.RegDomains))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(s.Lanes))
	buf[16] = s.NumLanes
	return buf, nil
}

// UnmarshalBinary decodes the fixed layout.
func (s *Selection) UnmarshalBinary(buf []byte) error {
	if len(buf) < SelectionSize {
		return errors.New("short selection blob")
	}
	s.RegDomains = lane.DomainMap(binary.LittleEndian.Uint64(buf[0:8]))
	s.Lanes = lane.Map(binary.LittleEndian.Uint64(buf[8:16]))
	s.NumLanes = buf[16]
	return nil
}
