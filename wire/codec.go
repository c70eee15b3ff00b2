package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"dualbft/types"
)

const category = "dBFT"

// ErrMalformedPayload is what Unmarshal returns for undecodable input.
// ErrBadSignature names the other drop reason, a failed signature check;
// Envelope.Verify reports that as a bool and never returns this error.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrBadSignature     = errors.New("bad envelope signature")
)

func malformed(format string, args ...interface{}) error {
	return errors.Wrap(ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// Envelope is the common wrapper carried by every dBFT message: origin
// validator index, height, view and a signature over the rest.
type Envelope struct {
	Height         types.Height
	ValidatorIndex uint16
	View           types.View
	Body           Payload
	Signature      []byte
}

func (e *Envelope) Kind() PayloadKind {
	if e.Body == nil {
		return 0
	}
	return e.Body.Kind()
}

// BodyHash returns the content digest of e's body alone, the value a
// PrepareResponse echoes back to bind itself to the request it answers.
func (e *Envelope) BodyHash() types.Hash {
	buf := new(bytes.Buffer)
	writeBody(buf, e.Body)
	return types.NewHash(buf.Bytes())
}

// SigningBytes returns the canonical encoding of fields 1-6 (everything but
// the signature itself) — the preimage a validator signs and a verifier
// checks against V[origin] .
func (e *Envelope) SigningBytes() []byte {
	buf := new(bytes.Buffer)
	writeString(buf, category)
	writeUint32(buf, uint32(e.Height))
	writeUint16(buf, e.ValidatorIndex)
	buf.WriteByte(byte(e.Kind()))
	buf.WriteByte(byte(e.View))
	writeBody(buf, e.Body)
	return buf.Bytes()
}

// Marshal encodes the full envelope, signature included.
func (e *Envelope) Marshal() []byte {
	buf := bytes.NewBuffer(e.SigningBytes())
	writeBytes(buf, e.Signature)
	return buf.Bytes()
}

// Unmarshal decodes an envelope from the wire. It does not verify the
// signature — that is the caller's job (transport pre-verifies per
//InboundPayload contract).
func Unmarshal(data []byte) (*Envelope, error) {
	r := bytes.NewReader(data)

	tag, err := readString(r)
	if err != nil {
		return nil, malformed("reading category tag: %v", err)
	}
	if tag != category {
		return nil, malformed("unexpected category tag %q", tag)
	}

	height, err := readUint32(r)
	if err != nil {
		return nil, malformed("reading height: %v", err)
	}
	valIdx, err := readUint16(r)
	if err != nil {
		return nil, malformed("reading validator index: %v", err)
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, malformed("reading payload kind: %v", err)
	}
	viewByte, err := r.ReadByte()
	if err != nil {
		return nil, malformed("reading view: %v", err)
	}

	body, err := readBody(r, PayloadKind(kindByte))
	if err != nil {
		return nil, err
	}

	sig, err := readBytes(r)
	if err != nil {
		return nil, malformed("reading signature: %v", err)
	}

	return &Envelope{
		Height:         types.Height(height),
		ValidatorIndex: uint16(valIdx),
		View:           types.View(viewByte),
		Body:           body,
		Signature:      sig,
	}, nil
}

func writeBody(buf *bytes.Buffer, body Payload) {
	switch p := body.(type) {
	case *PrepareRequestPayload:
		buf.WriteByte(byte(p.SlotID))
		writeTime(buf, p.Timestamp)
		writeUint64(buf, p.Nonce)
		writeUint16(buf, uint16(len(p.TxHashes)))
		for _, h := range p.TxHashes {
			writeBytes(buf, h)
		}
	case *PrepareResponsePayload:
		buf.WriteByte(byte(p.SlotID))
		writeBytes(buf, p.PrepareRequestHash)
	case *ChangeViewPayload:
		buf.WriteByte(byte(p.Reason))
		buf.WriteByte(byte(p.NewView))
		writeTime(buf, p.Timestamp)
	case *CommitPayload:
		buf.WriteByte(byte(p.SlotID))
		writeBytes(buf, p.Signature)
	case *RecoveryRequestPayload:
		writeTime(buf, p.Timestamp)
	case *RecoveryMessagePayload:
		writeUint16(buf, uint16(len(p.ChangeViews)))
		for _, e := range p.ChangeViews {
			writeBytes(buf, e.Marshal())
		}
		if p.PrepareRequest != nil {
			buf.WriteByte(1)
			writeBytes(buf, p.PrepareRequest.Marshal())
		} else {
			buf.WriteByte(0)
		}
		writeUint16(buf, uint16(len(p.PrepareResponses)))
		for _, e := range p.PrepareResponses {
			writeBytes(buf, e.Marshal())
		}
		writeUint16(buf, uint16(len(p.Commits)))
		for _, e := range p.Commits {
			writeBytes(buf, e.Marshal())
		}
	}
}

func readBody(r *bytes.Reader, kind PayloadKind) (Payload, error) {
	switch kind {
	case KindPrepareRequest:
		slotByte, err := r.ReadByte()
		if err != nil {
			return nil, malformed("prepare-request slot: %v", err)
		}
		ts, err := readTime(r)
		if err != nil {
			return nil, malformed("prepare-request timestamp: %v", err)
		}
		nonce, err := readUint64(r)
		if err != nil {
			return nil, malformed("prepare-request nonce: %v", err)
		}
		n, err := readUint16(r)
		if err != nil {
			return nil, malformed("prepare-request tx count: %v", err)
		}
		hashes := make([]types.Hash, n)
		for i := range hashes {
			h, err := readBytes(r)
			if err != nil {
				return nil, malformed("prepare-request tx hash %d: %v", i, err)
			}
			hashes[i] = h
		}
		return &PrepareRequestPayload{
			SlotID:    types.SlotID(slotByte),
			Timestamp: ts,
			Nonce:     nonce,
			TxHashes:  hashes,
		}, nil

	case KindPrepareResponse:
		slotByte, err := r.ReadByte()
		if err != nil {
			return nil, malformed("prepare-response slot: %v", err)
		}
		h, err := readBytes(r)
		if err != nil {
			return nil, malformed("prepare-response hash: %v", err)
		}
		return &PrepareResponsePayload{SlotID: types.SlotID(slotByte), PrepareRequestHash: h}, nil

	case KindChangeView:
		reasonByte, err := r.ReadByte()
		if err != nil {
			return nil, malformed("change-view reason: %v", err)
		}
		viewByte, err := r.ReadByte()
		if err != nil {
			return nil, malformed("change-view new-view: %v", err)
		}
		ts, err := readTime(r)
		if err != nil {
			return nil, malformed("change-view timestamp: %v", err)
		}
		return &ChangeViewPayload{
			Reason:    ChangeViewReason(reasonByte),
			NewView:   types.View(viewByte),
			Timestamp: ts,
		}, nil

	case KindCommit:
		slotByte, err := r.ReadByte()
		if err != nil {
			return nil, malformed("commit slot: %v", err)
		}
		sig, err := readBytes(r)
		if err != nil {
			return nil, malformed("commit signature: %v", err)
		}
		return &CommitPayload{SlotID: types.SlotID(slotByte), Signature: sig}, nil

	case KindRecoveryRequest:
		ts, err := readTime(r)
		if err != nil {
			return nil, malformed("recovery-request timestamp: %v", err)
		}
		return &RecoveryRequestPayload{Timestamp: ts}, nil

	case KindRecoveryMessage:
		cvCount, err := readUint16(r)
		if err != nil {
			return nil, malformed("recovery-message change-view count: %v", err)
		}
		cvs := make([]*Envelope, cvCount)
		for i := range cvs {
			raw, err := readBytes(r)
			if err != nil {
				return nil, malformed("recovery-message change-view %d: %v", i, err)
			}
			env, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			cvs[i] = env
		}

		hasPR, err := r.ReadByte()
		if err != nil {
			return nil, malformed("recovery-message prepare-request flag: %v", err)
		}
		var pr *Envelope
		if hasPR == 1 {
			raw, err := readBytes(r)
			if err != nil {
				return nil, malformed("recovery-message prepare-request: %v", err)
			}
			pr, err = Unmarshal(raw)
			if err != nil {
				return nil, err
			}
		}

		prCount, err := readUint16(r)
		if err != nil {
			return nil, malformed("recovery-message prepare-response count: %v", err)
		}
		prs := make([]*Envelope, prCount)
		for i := range prs {
			raw, err := readBytes(r)
			if err != nil {
				return nil, malformed("recovery-message prepare-response %d: %v", i, err)
			}
			env, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			prs[i] = env
		}

		cCount, err := readUint16(r)
		if err != nil {
			return nil, malformed("recovery-message commit count: %v", err)
		}
		commits := make([]*Envelope, cCount)
		for i := range commits {
			raw, err := readBytes(r)
			if err != nil {
				return nil, malformed("recovery-message commit %d: %v", i, err)
			}
			env, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			commits[i] = env
		}

		return &RecoveryMessagePayload{
			ChangeViews:      cvs,
			PrepareRequest:   pr,
			PrepareResponses: prs,
			Commits:          commits,
		}, nil

	default:
		return nil, malformed("unknown payload kind %d", kind)
	}
}

// ---- primitive encoders/decoders ----

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint16(buf, uint16(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func writeTime(buf *bytes.Buffer, t time.Time) {
	writeUint64(buf, uint64(t.UnixNano()))
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readTime(r *bytes.Reader) (time.Time, error) {
	ns, err := readUint64(r)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(ns)).UTC(), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("short read: wanted %d, got %d", len(b), n)
	}
	return n, nil
}
