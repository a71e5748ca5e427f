// Package journal хранит команды, отправленные с этой машины, и по ним
// восстанавливает последний использованный nonce аккаунта между запусками.
package journal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Lolalalalo-o/autocombat/pkg/command"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
)

type Journal struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	entries []Entry
	last    map[string]uint64
	now     func() time.Time
}

// Open открывает журнал или создает новый. Недописанный хвост
// (например, после падения) отрезается.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		f:    f,
		path: path,
		last: make(map[string]uint64),
		now:  time.Now,
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := writeHeader(f, j.now().UnixMilli()); err != nil {
			f.Close()
			return nil, err
		}
		return j, nil
	}

	_, entries, offset, err := readAll(f)
	if errors.Is(err, ErrTruncated) {
		logger.Log.WithField("path", path).Warn("journal has a truncated tail, dropping it")
		if err := f.Truncate(offset); err != nil {
			f.Close()
			return nil, err
		}
	} else if err != nil {
		f.Close()
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	for _, e := range entries {
		j.track(e)
	}
	j.entries = entries

	logger.Log.WithField("path", path).Debugf("journal loaded: %d entries", len(entries))
	return j, nil
}

// Append дописывает команду. Запись попадает на диск до возврата.
func (j *Journal) Append(account string, tok command.Token) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return os.ErrClosed
	}

	e := Entry{Timestamp: j.now().UnixMilli(), Account: account, Token: tok}
	if err := appendRecord(j.f, e); err != nil {
		return err
	}

	j.entries = append(j.entries, e)
	j.track(e)
	return nil
}

// recordFile - то, что нужно для дозаписи с откатом. *os.File подходит.
type recordFile interface {
	io.WriteSeeker
	Truncate(size int64) error
	Sync() error
}

// appendRecord пишет запись целиком или не пишет ничего: при ошибке
// файл обрезается до прежнего конца.
func appendRecord(f recordFile, e Entry) error {
	var buf bytes.Buffer
	if err := writeEntry(&buf, e); err != nil {
		return err
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	rollback := func(cause error) error {
		if err := f.Truncate(offset); err != nil {
			return fmt.Errorf("%w (rollback: %v)", cause, err)
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("%w (rollback: %v)", cause, err)
		}
		return cause
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return rollback(err)
	}
	if err := f.Sync(); err != nil {
		return rollback(err)
	}
	return nil
}

// LastNonce - наибольший nonce, записанный для аккаунта.
func (j *Journal) LastNonce(account string) (uint64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	n, ok := j.last[account]
	return n, ok
}

// Entries возвращает копию всех записей.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

func (j *Journal) track(e Entry) {
	nonce := command.Decode(e.Token).Nonce
	if cur, ok := j.last[e.Account]; !ok || nonce > cur {
		j.last[e.Account] = nonce
	}
}

// ReadFile читает журнал только для просмотра, не создавая и не чиня файл.
// Недописанный хвост пропускается.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, entries, _, err := readAll(f)
	if err != nil && !errors.Is(err, ErrTruncated) {
		return nil, err
	}
	return entries, nil
}
