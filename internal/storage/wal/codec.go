package wal

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/pkg/crypto/adaptive"
)

type wirePayload struct {
	Timestamp   int64  `json:"ts"`
	SessionName string `json:"sn"`
	Version     uint64 `json:"ver,omitempty"`

	Session *domain.Session          `json:"session,omitempty"`
	Record  *domain.AttendanceRecord `json:"record,omitempty"`

	// Encrypted is base64 of adaptive.Cipher.Encrypt(payloadJSON), holding
	// the session or record depending on the op type.
	Encrypted string `json:"enc,omitempty"`
}

func encodeEntryFrame(e *Entry, cipher adaptive.Cipher) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("wal: entry is nil")
	}

	var plain any
	switch e.OpType {
	case OpTypeSessionPut, OpTypeSessionUpdate:
		if e.Session == nil {
			return nil, fmt.Errorf("wal: missing session for op %d", e.OpType)
		}
		plain = e.Session
	case OpTypeAttendanceInsert:
		if e.Record == nil {
			return nil, fmt.Errorf("wal: missing record for op %d", e.OpType)
		}
		plain = e.Record
	default:
		return nil, ErrInvalidEntryType
	}

	p := wirePayload{
		Timestamp:   e.Timestamp,
		SessionName: e.SessionName,
		Version:     e.Version,
	}

	if cipher == nil {
		p.Session = e.Session
		p.Record = e.Record
	} else {
		plainJSON, err := json.Marshal(plain)
		if err != nil {
			return nil, fmt.Errorf("wal: marshal payload body: %w", err)
		}
		encrypted, err := cipher.Encrypt(plainJSON, nil)
		if err != nil {
			return nil, fmt.Errorf("wal: encrypt payload: %w", err)
		}
		p.Encrypted = base64.StdEncoding.EncodeToString(encrypted)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wal: marshal payload: %w", err)
	}

	typeByte := []byte{byte(e.OpType)}
	crc := crc32.ChecksumIEEE(append(typeByte, payload...))

	// Length = CRC(4) + Type(1) + Payload.
	length := uint32(4 + 1 + len(payload))
	if length < minFrameSize {
		return nil, ErrCorruptedEntry
	}

	out := make([]byte, 0, 4+int(length))
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	out = append(out, header[:]...)

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)

	out = append(out, typeByte...)
	out = append(out, payload...)
	return out, nil
}

func decodeEntryFrame(frame []byte, cipher adaptive.Cipher) (*Entry, error) {
	// Frame layout: [crc32:4][type:1][payload...]
	if len(frame) < minFrameSize {
		return nil, ErrCorruptedEntry
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	typeByte := frame[4]
	payload := frame[5:]

	gotCRC := crc32.ChecksumIEEE(append([]byte{typeByte}, payload...))
	if gotCRC != wantCRC {
		return nil, ErrChecksumMismatch
	}

	var p wirePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("wal: unmarshal payload: %w", err)
	}

	op := OpType(typeByte)
	switch op {
	case OpTypeSessionPut, OpTypeSessionUpdate, OpTypeAttendanceInsert:
	default:
		return nil, ErrInvalidEntryType
	}

	out := &Entry{
		OpType:      op,
		Timestamp:   p.Timestamp,
		SessionName: p.SessionName,
		Version:     p.Version,
	}

	body, err := decodePayloadBody(&p, cipher)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpTypeSessionPut, OpTypeSessionUpdate:
		if p.Session != nil {
			out.Session = p.Session
			return out, nil
		}
		var sess domain.Session
		if err := json.Unmarshal(body, &sess); err != nil {
			return nil, fmt.Errorf("wal: unmarshal session: %w", err)
		}
		out.Session = &sess
	case OpTypeAttendanceInsert:
		if p.Record != nil {
			out.Record = p.Record
			return out, nil
		}
		var record domain.AttendanceRecord
		if err := json.Unmarshal(body, &record); err != nil {
			return nil, fmt.Errorf("wal: unmarshal record: %w", err)
		}
		out.Record = &record
	}

	return out, nil
}

// decodePayloadBody returns the decrypted payload body for entries whose
// plain Session/Record fields are absent.
func decodePayloadBody(p *wirePayload, cipher adaptive.Cipher) ([]byte, error) {
	if p.Session != nil || p.Record != nil {
		return nil, nil
	}
	if p.Encrypted == "" {
		return nil, fmt.Errorf("wal: missing payload body")
	}
	if cipher == nil {
		return nil, fmt.Errorf("wal: encrypted entry requires cipher")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(p.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("wal: decode encrypted payload: %w", err)
	}

	plain, err := cipher.Decrypt(ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wal: decrypt payload: %w", err)
	}
	return plain, nil
}
