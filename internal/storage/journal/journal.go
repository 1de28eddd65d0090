// ============================================================================
// questboard event journal
// ============================================================================
//
// Package: internal/storage/journal
//
// The journal is an append-only JSON-lines file of lifecycle events. Every
// record carries a monotonically increasing sequence number and a CRC32
// checksum over the sequence and the encoded event, so a torn or edited
// line is detected on replay.
//
// The journal is an audit trail, not the source of truth: the repository
// holds current state, the journal explains how it got there.
//
// ============================================================================

package journal

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
)

var (
	ErrChecksumMismatch = errors.New("journal: checksum mismatch")
	ErrCorrupted        = errors.New("journal: file is corrupted")
	ErrClosed           = errors.New("journal: already closed")
)

// Record is one journal line.
type Record struct {
	Seq      uint64       `json:"seq"`
	Event    events.Event `json:"event"`
	Checksum uint32       `json:"checksum"`
}

// Handler consumes a replayed record.
type Handler func(Record) error

// FileInterface is the subset of *os.File the journal writes through.
type FileInterface interface {
	Write(p []byte) (n int, err error)
	Sync() error
	Close() error
}

// Journal appends event records to a file.
type Journal struct {
	mu           sync.Mutex
	file         FileInterface
	path         string
	seq          uint64
	syncOnAppend bool
	closed       bool
}

// Open opens or creates the journal at path and resumes its sequence.
func Open(path string, syncOnAppend bool) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}

	var seq uint64
	if last, err := LastRecord(path); err != nil {
		file.Close()
		return nil, err
	} else if last != nil {
		seq = last.Seq
	}

	return &Journal{file: file, path: path, seq: seq, syncOnAppend: syncOnAppend}, nil
}

// Append writes e as the next record.
func (j *Journal) Append(e events.Event) (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return Record{}, ErrClosed
	}
	rec := Record{Seq: j.seq + 1, Event: e}
	sum, err := Checksum(rec.Seq, e)
	if err != nil {
		return Record{}, err
	}
	rec.Checksum = sum

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "encode journal record")
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return Record{}, errors.Wrap(err, "append journal record")
	}
	if j.syncOnAppend {
		if err := j.file.Sync(); err != nil {
			return Record{}, errors.Wrap(err, "sync journal")
		}
	}
	j.seq = rec.Seq
	return rec, nil
}

// Handle lets the journal subscribe to an events.Bus.
func (j *Journal) Handle(e events.Event) error {
	_, err := j.Append(e)
	return err
}

// Replay streams every record to handler in order, verifying checksums.
func (j *Journal) Replay(handler Handler) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return replayFile(j.path, handler)
}

// Tail returns the last n records, oldest first. n <= 0 returns all.
func (j *Journal) Tail(n int) ([]Record, error) {
	var out []Record
	err := j.Replay(func(r Record) error {
		out = append(out, r)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
		return nil
	})
	return out, err
}

// LastSeq returns the sequence number of the last appended record.
func (j *Journal) LastSeq() uint64 {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Rotate compresses the current file to path.<timestamp>.gz and starts an
// empty journal. Sequence numbers keep increasing across rotations.
func (j *Journal) Rotate() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return "", ErrClosed
	}
	if err := j.file.Sync(); err != nil {
		return "", errors.Wrap(err, "sync journal")
	}
	if err := j.file.Close(); err != nil {
		return "", errors.Wrap(err, "close journal")
	}

	archive := j.path + "." + time.Now().Format("20060102_150405") + ".gz"
	if err := compressFile(j.path, archive); err != nil {
		return "", errors.Wrap(err, "compress journal")
	}

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "reopen journal")
	}
	j.file = file
	return archive, nil
}

// Close syncs and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.file.Sync(); err != nil {
		j.file.Close()
		return errors.Wrap(err, "sync journal")
	}
	return j.file.Close()
}

// ============================================================================
// helpers
// ============================================================================

// Checksum computes the CRC32 of seq and the JSON encoding of e.
func Checksum(seq uint64, e events.Event) (uint32, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return 0, errors.Wrap(err, "encode event")
	}
	return checksum(seq, raw), nil
}

// Verify reports whether the record checksum matches its content.
func Verify(r Record) bool {
	sum, err := Checksum(r.Seq, r.Event)
	return err == nil && sum == r.Checksum
}

func replayFile(path string, handler Handler) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "open journal")
	}
	defer f.Close()
	return replayReader(f, handler)
}

func replayReader(r io.Reader, handler Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var line int
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return errors.Mark(errors.Wrapf(err, "line %d", line), ErrCorrupted)
		}
		if !Verify(rec) {
			return errors.Mark(errors.Newf("record %d at line %d", rec.Seq, line), ErrChecksumMismatch)
		}
		if err := handler(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "scan journal"), ErrCorrupted)
	}
	return nil
}

// LastRecord returns the final record of the journal at path, or nil when
// the file is missing or empty.
func LastRecord(path string) (*Record, error) {
	var last *Record
	err := replayFile(path, func(r Record) error {
		rec := r
		last = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReplayArchive replays a gzip-compressed journal produced by Rotate.
func ReplayArchive(path string, handler Handler) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open journal archive")
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open gzip stream"), ErrCorrupted)
	}
	defer zr.Close()
	return replayReader(zr, handler)
}
