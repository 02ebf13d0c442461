package storage

import (
	"encoding/binary"
	"fmt"
)

// This file implements the self-describing, length-prefixed binary codec
// the schema calls for: every string or byte slice is written as a uint32
// length followed by that many bytes, and every sequence (a string list, a
// map, a row of named fields) as a uint32 element count followed by its
// elements, so decoding never needs a separate header or schema registry —
// the bytes describe their own shape.

func putUint32(buf []byte, v []byte) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(v)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, v...)
	return buf
}

func readUint32(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("codec: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return nil, nil, fmt.Errorf("codec: truncated value, want %d bytes, have %d", n, len(data))
	}
	return data[:n], data[n:], nil
}

// encodeStringSlice encodes a sequence of strings as a count followed by
// each string length-prefixed.
func encodeStringSlice(values []string) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(values)))
	for _, v := range values {
		buf = putUint32(buf, []byte(v))
	}
	return buf
}

func decodeStringSlice(data []byte) ([]string, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("codec: truncated string slice count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		var v []byte
		var err error
		v, data, err = readUint32(data)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, string(v))
	}
	return out, data, nil
}

// EncodeChainInfos encodes t_chain.infos: a sequence of group IDs followed
// by a sequence of service names.
func EncodeChainInfos(groupIDs, services []string) []byte {
	buf := encodeStringSlice(groupIDs)
	buf = append(buf, encodeStringSlice(services)...)
	return buf
}

// DecodeChainInfos decodes t_chain.infos back into its two string sequences.
func DecodeChainInfos(data []byte) (groupIDs, services []string, err error) {
	groupIDs, rest, err := decodeStringSlice(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode chain infos group list: %w", err)
	}
	services, _, err = decodeStringSlice(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("decode chain infos service list: %w", err)
	}
	return groupIDs, services, nil
}

// EncodeDeployInfo encodes a {serviceName -> deployIP} mapping.
func EncodeDeployInfo(deployInfo map[string]string) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(deployInfo)))
	for k, v := range deployInfo {
		buf = putUint32(buf, []byte(k))
		buf = putUint32(buf, []byte(v))
	}
	return buf
}

// DecodeDeployInfo decodes a {serviceName -> deployIP} mapping.
func DecodeDeployInfo(data []byte) (map[string]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: truncated deploy info count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	out := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		var key, val []byte
		var err error
		key, data, err = readUint32(data)
		if err != nil {
			return nil, fmt.Errorf("decode deploy info key: %w", err)
		}
		val, data, err = readUint32(data)
		if err != nil {
			return nil, fmt.Errorf("decode deploy info value: %w", err)
		}
		out[string(key)] = string(val)
	}
	return out, nil
}

// Row is a single table row addressed by field name; composite fields carry
// their binary encoding as the field value, printable fields carry UTF-8
// bytes directly.
type Row map[string][]byte

// encodeRow serializes a Row for the BoltTabularStore's on-disk bucket
// value: a field count followed by length-prefixed name/value pairs.
func encodeRow(row Row) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(row)))
	for name, value := range row {
		buf = putUint32(buf, []byte(name))
		buf = putUint32(buf, value)
	}
	return buf
}

func decodeRow(data []byte) (Row, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: truncated row field count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	row := make(Row, count)
	for i := uint32(0); i < count; i++ {
		var name, value []byte
		var err error
		name, data, err = readUint32(data)
		if err != nil {
			return nil, fmt.Errorf("decode row field name: %w", err)
		}
		value, data, err = readUint32(data)
		if err != nil {
			return nil, fmt.Errorf("decode row field value: %w", err)
		}
		row[string(name)] = value
	}
	return row, nil
}
