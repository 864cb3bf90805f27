package domain

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// CanonicalEncode produces the stable binary encoding of a FileMetadata:
// fixed field order, fixed integer widths, length-prefixed byte strings,
// and present-flag encoding for optional fields. metadata_hash is the
// content hash of this encoding, so two implementations that agree on this
// layout agree on version identity.
func CanonicalEncode(m FileMetadata) []byte {
	var buf bytes.Buffer

	buf.Write(m.FileID[:])
	writeU64(&buf, m.FileSize)

	writeOptional(&buf, m.EncryptionMetadata != nil, func() {
		encodeEncryptionMetadata(&buf, *m.EncryptionMetadata)
	})

	writeU32(&buf, uint32(len(m.Chunks)))
	for _, c := range m.Chunks {
		buf.Write(c.ChunkID[:])
		writeU16(&buf, c.StripeIndex)
		writeU16(&buf, c.ShardIndex)
		writeU32(&buf, c.Size)
	}

	writeOptional(&buf, m.ParentVersion != nil, func() {
		buf.Write(m.ParentVersion[:])
	})

	writeOptional(&buf, m.LocalMetadata != nil, func() {
		encodeLocalMetadata(&buf, *m.LocalMetadata)
	})

	writeU32(&buf, uint32(m.DataShards))
	writeU32(&buf, uint32(m.ParityShards))
	writeU32(&buf, uint32(m.ShardSize))
	writeU64(&buf, m.CiphertextSize)

	return buf.Bytes()
}

func encodeEncryptionMetadata(buf *bytes.Buffer, e EncryptionMetadata) {
	writeString(buf, e.Algorithm)
	writeString(buf, string(e.KeyDerivation))
	writeOptional(buf, e.ConvergenceSecretID != nil, func() {
		writeBytes(buf, e.ConvergenceSecretID)
	})
	writeBytes(buf, e.Nonce)
}

func encodeLocalMetadata(buf *bytes.Buffer, l LocalMetadata) {
	writeString(buf, l.FileName)
	writeString(buf, l.Author)
	writeString(buf, l.MimeType)

	keys := make([]string, 0, len(l.Tags))
	for k := range l.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writeU32(buf, uint32(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
		writeString(buf, l.Tags[k])
	}
}

func writeOptional(buf *bytes.Buffer, present bool, encodeValue func()) {
	if present {
		buf.WriteByte(1)
		encodeValue()
		return
	}
	buf.WriteByte(0)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}
