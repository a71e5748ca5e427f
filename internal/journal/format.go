package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Lolalalalo-o/autocombat/pkg/command"
)

const (
	MagicHeader string = `ACJR` // 4 байта
	Version1    uint32 = 1
)

var (
	ErrBadMagic  = errors.New("invalid magic")
	ErrTruncated = errors.New("truncated record")
)

// FileHeader - точное представление заголовка файла в памяти.
// Только массивы и числа, поэтому binary.Write пишет его целиком.
type FileHeader struct {
	Magic     [4]byte // 4 байта
	Version   uint32  // 4 байта
	CreatedAt int64   // 8 байт, unix ms
}

// RecordHeader - заголовок каждой записи.
type RecordHeader struct {
	Timestamp  int64  // 8, unix ms
	Token      uint64 // 8
	AccountLen uint8  // 1
}

var (
	fileHeaderSize   = int64(binary.Size(FileHeader{}))
	recordHeaderSize = int64(binary.Size(RecordHeader{}))
)

// Entry - одна отправленная команда
type Entry struct {
	Timestamp int64         `json:"timestamp"`
	Account   string        `json:"account"`
	Token     command.Token `json:"token"`
}

func writeHeader(w io.Writer, createdAt int64) error {
	header := FileHeader{Version: Version1, CreatedAt: createdAt}
	copy(header.Magic[:], MagicHeader)
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func writeEntry(w io.Writer, e Entry) error {
	accountBytes := []byte(e.Account)
	if len(accountBytes) > 255 {
		return fmt.Errorf("account too long: %d", len(accountBytes))
	}

	rh := RecordHeader{
		Timestamp:  e.Timestamp,
		Token:      uint64(e.Token),
		AccountLen: uint8(len(accountBytes)),
	}
	if err := binary.Write(w, binary.LittleEndian, &rh); err != nil {
		return err
	}
	_, err := w.Write(accountBytes)
	return err
}

// readAll читает заголовок и все целые записи. Возвращает смещение конца
// последней целой записи: хвост после него можно отрезать.
func readAll(r io.Reader) (FileHeader, []Entry, int64, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return header, nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != MagicHeader {
		return header, nil, 0, ErrBadMagic
	}
	if header.Version != Version1 {
		return header, nil, 0, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	offset := fileHeaderSize
	var entries []Entry
	for {
		var rh RecordHeader
		err := binary.Read(r, binary.LittleEndian, &rh)
		if errors.Is(err, io.EOF) {
			return header, entries, offset, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return header, entries, offset, ErrTruncated
		}
		if err != nil {
			return header, entries, offset, err
		}

		buf := make([]byte, rh.AccountLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return header, entries, offset, ErrTruncated
			}
			return header, entries, offset, err
		}

		entries = append(entries, Entry{
			Timestamp: rh.Timestamp,
			Account:   string(buf),
			Token:     command.Token(rh.Token),
		})
		offset += recordHeaderSize + int64(rh.AccountLen)
	}
}
