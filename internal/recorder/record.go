package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"time"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 32
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'M', 'K', 'T', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("capture invalid magic")
	ErrUnsupportedRecordVer    = errors.New("capture unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("capture invalid header size")
)

// recordHeader carries enough to pace playback without decoding the
// JSON payload.
type recordHeader struct {
	Kind    model.EventKind
	TsEvent int64
	TsRecv  int64
}

func headerFor(ev *model.MarketEvent) recordHeader {
	h := recordHeader{Kind: ev.Kind, TsRecv: ev.Recv.UnixNano()}
	switch {
	case ev.Depth != nil:
		h.TsEvent = ev.Depth.EventTime.UnixNano()
	case ev.Trade != nil:
		h.TsEvent = ev.Trade.Timestamp.UnixNano()
	}
	return h
}

func encodeHeader(dst []byte, header recordHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	dst[8] = byte(header.Kind)
	dst[9], dst[10], dst[11] = 0, 0, 0
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(header.TsEvent))
	binary.LittleEndian.PutUint64(dst[24:32], uint64(header.TsRecv))
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (recordHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return recordHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return recordHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return recordHeader{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return recordHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[12:16])
	h := recordHeader{
		Kind:    model.EventKind(src[8]),
		TsEvent: int64(binary.LittleEndian.Uint64(src[16:24])),
		TsRecv:  int64(binary.LittleEndian.Uint64(src[24:32])),
	}
	return h, payloadLen, nil
}

func nanosToTime(ns int64) time.Time {
	if ns <= 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
