package linecache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DiskTier persists line arrays in a side file next to other cache state,
// keyed to the source dataset's identity. The file holds a length-prefixed
// JSON header describing each stored array followed by zstd-compressed
// payloads. Writes go through a temp file and rename, so a crashed run
// leaves either the previous file or none. A file that fails to parse or
// decompress is reported as an error, never recomputed over; the operator
// removes it to force recomputation.
type DiskTier struct {
	path     string
	identity string
	decoder  *zstd.Decoder
	encoder  *zstd.Encoder
}

const sideFileVersion = "1"

type sideFileHeader struct {
	FormatVersion string                  `json:"format_version"`
	Source        string                  `json:"source"`
	Arrays        map[string]sideFileSpan `json:"arrays"`
}

type sideFileSpan struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// NewDiskTier creates a disk tier rooted at dir for one dataset identity.
func NewDiskTier(dir, identity string) (*DiskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &DiskTier{
		path:     filepath.Join(dir, sideFileName(identity)),
		identity: identity,
		decoder:  dec,
		encoder:  enc,
	}, nil
}

// sideFileName derives a filesystem-safe name from the dataset identity.
func sideFileName(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	base := filepath.Base(identity)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
	return base + "-" + hex.EncodeToString(sum[:6]) + ".linecache"
}

// Path returns the side file location.
func (t *DiskTier) Path() string { return t.path }

func (t *DiskTier) Name() string { return "disk" }

// arrayName maps a tier key back to the array it names within this file.
func (t *DiskTier) arrayName(key string) string {
	return strings.TrimPrefix(key, t.identity+"_")
}

func (t *DiskTier) TryGet(key string) ([]byte, bool, error) {
	arrays, err := t.load()
	if err != nil {
		return nil, false, err
	}
	if arrays == nil {
		return nil, false, nil
	}
	data, ok := arrays[t.arrayName(key)]
	return data, ok, nil
}

func (t *DiskTier) Put(key string, data []byte) error {
	arrays, err := t.load()
	if err != nil {
		return err
	}
	if arrays == nil {
		arrays = make(map[string][]byte)
	}

	// Keep existing arrays; only the named one is replaced.
	arrays[t.arrayName(key)] = data
	return t.write(arrays)
}

// load reads and decompresses every array in the side file. Returns nil with
// no error when the file does not exist.
func (t *DiskTier) load() (map[string][]byte, error) {
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read side file %s: %w", t.path, err)
	}

	if len(raw) < 4 {
		return nil, fmt.Errorf("side file %s is truncated", t.path)
	}
	headerLen := int(binary.LittleEndian.Uint32(raw))
	if headerLen <= 0 || 4+headerLen > len(raw) {
		return nil, fmt.Errorf("side file %s has an invalid header length %d", t.path, headerLen)
	}

	var header sideFileHeader
	if err := json.Unmarshal(raw[4:4+headerLen], &header); err != nil {
		return nil, fmt.Errorf("side file %s has a corrupt header: %w", t.path, err)
	}
	if header.Source != t.identity {
		return nil, fmt.Errorf("side file %s belongs to source %q, expected %q", t.path, header.Source, t.identity)
	}

	payload := raw[4+headerLen:]
	arrays := make(map[string][]byte, len(header.Arrays))
	for name, span := range header.Arrays {
		if span.Offset < 0 || span.Length < 0 || span.Offset+span.Length > len(payload) {
			return nil, fmt.Errorf("side file %s: array %s spans outside payload", t.path, name)
		}
		data, err := t.decoder.DecodeAll(payload[span.Offset:span.Offset+span.Length], nil)
		if err != nil {
			return nil, fmt.Errorf("side file %s: array %s failed to decompress: %w", t.path, name, err)
		}
		arrays[name] = data
	}
	return arrays, nil
}

func (t *DiskTier) write(arrays map[string][]byte) error {
	header := sideFileHeader{
		FormatVersion: sideFileVersion,
		Source:        t.identity,
		Arrays:        make(map[string]sideFileSpan, len(arrays)),
	}

	var payload []byte
	for name, data := range arrays {
		compressed := t.encoder.EncodeAll(data, nil)
		header.Arrays[name] = sideFileSpan{Offset: len(payload), Length: len(compressed)}
		payload = append(payload, compressed...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to encode side file header: %w", err)
	}

	out := make([]byte, 0, 4+len(headerJSON)+len(payload))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(headerJSON)))
	out = append(out, headerJSON...)
	out = append(out, payload...)

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("failed to write side file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace side file: %w", err)
	}
	return nil
}

// Close releases compression resources.
func (t *DiskTier) Close() {
	if t.decoder != nil {
		t.decoder.Close()
	}
	if t.encoder != nil {
		t.encoder.Close()
	}
}
