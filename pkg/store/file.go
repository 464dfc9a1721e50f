package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot layout, little endian:
//
//	magic   [4]byte  "HEAT"
//	version uint16
//	flags   uint16   reserved, zero
//	count   uint32   number of records
//	body    zstd(msgpack([]Record))
//	sum     uint64   xxhash64 of body
const (
	snapshotMagic      = "HEAT"
	snapshotVersion    = uint16(1)
	snapshotHeaderSize = 12
	snapshotTrailer    = 8
)

// ErrCorruptSnapshot is returned when a snapshot file fails validation.
var ErrCorruptSnapshot = errors.New("store: corrupt snapshot")

// FileStore persists the whole record set as one compressed snapshot file.
// Every upsert rewrites the file atomically; callers are expected to batch.
type FileStore struct {
	path string
	mem  *MemoryStore
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	mu   sync.Mutex
}

// OpenFileStore loads the snapshot at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}

	fs := &FileStore{
		path: path,
		mem:  NewMemoryStore(),
		enc:  enc,
		dec:  dec,
	}

	records, err := fs.readSnapshot()
	if err != nil {
		fs.closeCodecs()
		return nil, err
	}
	if len(records) > 0 {
		if err := fs.mem.UpsertMany(context.Background(), records); err != nil {
			fs.closeCodecs()
			return nil, err
		}
	}
	log.Debugf("Opened snapshot %s with %d records", path, len(records))
	return fs, nil
}

// Path returns the snapshot file location.
func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) LoadAll(ctx context.Context) ([]Record, error) {
	return fs.mem.LoadAll(ctx)
}

func (fs *FileStore) UpsertHeat(ctx context.Context, term string, heat int) error {
	return fs.UpsertMany(ctx, []Record{{Term: term, Heat: heat}})
}

// UpsertMany applies records to the in-memory image and rewrites the snapshot.
func (fs *FileStore) UpsertMany(ctx context.Context, records []Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.mem.UpsertMany(ctx, records); err != nil {
		return err
	}
	all, err := fs.mem.LoadAll(ctx)
	if err != nil {
		return err
	}
	return fs.writeSnapshot(all)
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closeCodecs()
	return fs.mem.Close()
}

func (fs *FileStore) closeCodecs() {
	if fs.enc != nil {
		_ = fs.enc.Close()
		fs.enc = nil
	}
	if fs.dec != nil {
		fs.dec.Close()
		fs.dec = nil
	}
}

func (fs *FileStore) writeSnapshot(records []Record) error {
	if fs.enc == nil {
		return ErrClosed
	}
	raw, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	body := fs.enc.EncodeAll(raw, nil)

	var buf bytes.Buffer
	buf.Grow(snapshotHeaderSize + len(body) + snapshotTrailer)
	buf.WriteString(snapshotMagic)
	_ = binary.Write(&buf, binary.LittleEndian, snapshotVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(records)))
	buf.Write(body)
	_ = binary.Write(&buf, binary.LittleEndian, xxhash.Sum64(body))

	return utils.WriteFileAtomic(fs.path, func(f *os.File) error {
		_, err := f.Write(buf.Bytes())
		return err
	})
}

func (fs *FileStore) readSnapshot() ([]Record, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", fs.path, err)
	}
	return decodeSnapshot(fs.dec, data)
}

func decodeSnapshot(dec *zstd.Decoder, data []byte) ([]Record, error) {
	if len(data) < snapshotHeaderSize+snapshotTrailer {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorruptSnapshot, len(data))
	}
	if string(data[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, data[:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}
	count := binary.LittleEndian.Uint32(data[8:12])

	body := data[snapshotHeaderSize : len(data)-snapshotTrailer]
	want := binary.LittleEndian.Uint64(data[len(data)-snapshotTrailer:])
	if got := xxhash.Sum64(body); got != want {
		return nil, fmt.Errorf("%w: checksum %016x, want %016x", ErrCorruptSnapshot, got, want)
	}

	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	var records []Record
	if err := msgpack.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if uint32(len(records)) != count {
		return nil, fmt.Errorf("%w: header says %d records, body has %d", ErrCorruptSnapshot, count, len(records))
	}
	return records, nil
}
