package survey

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Store layout on disk:
//
//	<dir>/metadata.json        dataset metadata and array registry
//	<dir>/<array>/c/<n>        zstd-compressed little-endian chunk payloads
//
// Arrays are one-dimensional. Coordinates are stored as the aligned
// "longitude" and "latitude" arrays, matching the upstream survey format.
const (
	storeFormatVersion = "1"
	defaultChunkSize   = 1024
)

type arrayMeta struct {
	DType string `json:"dtype"`
	Count int    `json:"count"`
	Chunk int    `json:"chunk"`
}

type storeMeta struct {
	FormatVersion string               `json:"format_version"`
	Source        string               `json:"source"`
	PointCount    int                  `json:"point_count"`
	Bounds        Bounds               `json:"bounds"`
	PointVars     []string             `json:"point_variables"`
	Arrays        map[string]arrayMeta `json:"arrays"`
	FlagNames     []string             `json:"coordinate_flag,omitempty"`
}

// Store is a Dataset backed by a directory of chunked, compressed arrays.
type Store struct {
	dir  string
	meta *storeMeta

	mu      sync.RWMutex
	coords  [][2]float64
	decoder *zstd.Decoder
	encoder *zstd.Encoder
}

var _ Mutable = (*Store)(nil)

// OpenStore opens an existing store directory.
func OpenStore(dir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read store metadata: %w", err)
	}

	var meta storeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse store metadata: %w", err)
	}
	if meta.Arrays == nil {
		meta.Arrays = make(map[string]arrayMeta)
	}

	return newStore(dir, &meta)
}

// CreateStore initializes an empty store directory for a source dataset.
func CreateStore(dir, source string, pointCount int, bounds Bounds) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	meta := &storeMeta{
		FormatVersion: storeFormatVersion,
		Source:        source,
		PointCount:    pointCount,
		Bounds:        bounds,
		Arrays:        make(map[string]arrayMeta),
	}

	s, err := newStore(dir, meta)
	if err != nil {
		return nil, err
	}
	if err := s.writeMeta(); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(dir string, meta *storeMeta) (*Store, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Store{dir: dir, meta: meta, decoder: dec, encoder: enc}, nil
}

// WriteFromMemory materializes a Memory dataset as a store. Used by the
// conversion pipeline and by tests to build fixtures.
func WriteFromMemory(dir string, m *Memory) (*Store, error) {
	s, err := CreateStore(dir, m.Identity(), len(m.Coords), m.Extent())
	if err != nil {
		return nil, err
	}

	lon := make([]float64, len(m.Coords))
	lat := make([]float64, len(m.Coords))
	for i, c := range m.Coords {
		lon[i] = c[0]
		lat[i] = c[1]
	}
	if err := s.PutFloat64("longitude", lon); err != nil {
		return nil, err
	}
	if err := s.PutFloat64("latitude", lat); err != nil {
		return nil, err
	}
	if len(m.LineNumbers) > 0 {
		if err := s.PutInt32("line", m.LineNumbers); err != nil {
			return nil, err
		}
	}
	if m.LineIdx != nil && !m.NoLineIndex {
		if err := s.PutInt32("line_index", m.LineIdx); err != nil {
			return nil, err
		}
	}
	for _, name := range m.PointVariables() {
		if err := s.PutFloat64(name, m.Vars[name]); err != nil {
			return nil, err
		}
		s.meta.PointVars = append(s.meta.PointVars, name)
	}
	if err := s.writeMeta(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) writeMeta() error {
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store metadata: %w", err)
	}

	// Write via temp file + rename so a crash never leaves a torn metadata
	// file behind.
	path := filepath.Join(s.dir, "metadata.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace store metadata: %w", err)
	}
	return nil
}

func dtypeSize(dtype string) (int, error) {
	switch dtype {
	case "float64":
		return 8, nil
	case "int32":
		return 4, nil
	case "uint8":
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported array dtype: %s", dtype)
	}
}

// writeArray writes raw little-endian element bytes as compressed chunks and
// registers the array, replacing any previous contents.
func (s *Store) writeArray(name, dtype string, raw []byte, count int) error {
	size, err := dtypeSize(dtype)
	if err != nil {
		return err
	}
	if len(raw) != count*size {
		return fmt.Errorf("array %s: payload is %d bytes, expected %d", name, len(raw), count*size)
	}

	chunkDir := filepath.Join(s.dir, name, "c")
	if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("array %s: failed to clear previous chunks: %w", name, err)
	}
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return fmt.Errorf("array %s: failed to create chunk directory: %w", name, err)
	}

	chunk := defaultChunkSize
	for i := 0; i*chunk < count; i++ {
		start := i * chunk * size
		end := start + chunk*size
		if end > len(raw) {
			end = len(raw)
		}
		compressed := s.encoder.EncodeAll(raw[start:end], nil)
		path := filepath.Join(chunkDir, strconv.Itoa(i))
		if err := os.WriteFile(path, compressed, 0o644); err != nil {
			return fmt.Errorf("array %s: failed to write chunk %d: %w", name, i, err)
		}
	}

	s.meta.Arrays[name] = arrayMeta{DType: dtype, Count: count, Chunk: chunk}
	return s.writeMeta()
}

// readArray reads and decompresses all chunks of an array into one buffer.
func (s *Store) readArray(name string) ([]byte, error) {
	am, ok := s.meta.Arrays[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrMissingVariable)
	}
	size, err := dtypeSize(am.DType)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, am.Count*size)
	nChunks := (am.Count + am.Chunk - 1) / am.Chunk
	for i := 0; i < nChunks; i++ {
		path := filepath.Join(s.dir, name, "c", strconv.Itoa(i))
		compressed, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("array %s: failed to read chunk %d: %w", name, i, err)
		}
		data, err := s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("array %s: zstd decompress of chunk %d failed: %w", name, i, err)
		}
		raw = append(raw, data...)
	}
	if len(raw) != am.Count*size {
		return nil, fmt.Errorf("array %s: got %d bytes across chunks, expected %d", name, len(raw), am.Count*size)
	}
	return raw, nil
}

// PutFloat64 stores a float64 array.
func (s *Store) PutFloat64(name string, vals []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return s.writeArray(name, "float64", raw, len(vals))
}

// PutInt32 stores an int32 array.
func (s *Store) PutInt32(name string, vals []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return s.writeArray(name, "int32", raw, len(vals))
}

// PutUint8 stores a uint8 array.
func (s *Store) PutUint8(name string, vals []uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeArray(name, "uint8", append([]byte(nil), vals...), len(vals))
}

func (s *Store) readFloat64(name string) ([]float64, error) {
	raw, err := s.readArray(name)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(raw)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return vals, nil
}

func (s *Store) readInt32(name string) ([]int32, error) {
	raw, err := s.readArray(name)
	if err != nil {
		return nil, err
	}
	vals := make([]int32, len(raw)/4)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vals, nil
}

// Dataset implementation.

func (s *Store) Identity() string { return s.meta.Source }

func (s *Store) PointCount() int { return s.meta.PointCount }

func (s *Store) Coordinates() ([][2]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinates()
}

func (s *Store) coordinates() ([][2]float64, error) {
	if s.coords != nil {
		return s.coords, nil
	}
	lon, err := s.readFloat64("longitude")
	if err != nil {
		return nil, err
	}
	lat, err := s.readFloat64("latitude")
	if err != nil {
		return nil, err
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("coordinate arrays are misaligned: %d longitudes vs %d latitudes", len(lon), len(lat))
	}
	coords := make([][2]float64, len(lon))
	for i := range lon {
		coords[i] = [2]float64{lon[i], lat[i]}
	}
	s.coords = coords
	return coords, nil
}

func (s *Store) SpatialMask(b Bounds) ([]bool, error) {
	coords, err := s.Coordinates()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(coords))
	for i, c := range coords {
		mask[i] = b.Contains(c[0], c[1])
	}
	return mask, nil
}

func (s *Store) Extent() Bounds { return s.meta.Bounds }

func (s *Store) PointVariables() []string { return s.meta.PointVars }

func (s *Store) Variable(name string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readFloat64(name)
}

func (s *Store) VariableAt(name string, positions []int) ([]float64, error) {
	vals, err := s.Variable(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(vals) {
			return nil, fmt.Errorf("variable %s: position %d out of range 0..%d", name, p, len(vals))
		}
		out[i] = vals[p]
	}
	return out, nil
}

func (s *Store) ReadLineNumbers() ([]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readInt32("line")
}

func (s *Store) ReadLineIndex() ([]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readInt32("line_index")
}

// Mutable implementation.

func (s *Store) WriteCoordinates(start int, pts [][2]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.coordinates()
	if err != nil {
		return err
	}
	if start < 0 || start+len(pts) > len(coords) {
		return fmt.Errorf("coordinate write [%d,%d) out of range 0..%d", start, start+len(pts), len(coords))
	}
	copy(coords[start:], pts)

	lon := make([]float64, len(coords))
	lat := make([]float64, len(coords))
	for i, c := range coords {
		lon[i] = c[0]
		lat[i] = c[1]
	}
	if err := s.writeFloat64Locked("longitude", lon); err != nil {
		return err
	}
	return s.writeFloat64Locked("latitude", lat)
}

func (s *Store) writeFloat64Locked(name string, vals []float64) error {
	raw := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return s.writeArray(name, "float64", raw, len(vals))
}

func (s *Store) CreateFlagArrays() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meta.Arrays["coordinate_flag_index"]; ok {
		return ErrFlagsExist
	}
	s.meta.FlagNames = append([]string(nil), CoordinateFlagNames...)
	raw := make([]byte, s.meta.PointCount)
	return s.writeArray("coordinate_flag_index", "uint8", raw, s.meta.PointCount)
}

func (s *Store) WriteFlags(start int, flags []uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readArray("coordinate_flag_index")
	if err != nil {
		return err
	}
	if start < 0 || start+len(flags) > len(raw) {
		return fmt.Errorf("flag write [%d,%d) out of range 0..%d", start, start+len(flags), len(raw))
	}
	copy(raw[start:], flags)
	return s.writeArray("coordinate_flag_index", "uint8", raw, len(raw))
}

func (s *Store) Flags() ([]uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.readArray("coordinate_flag_index")
	if err != nil {
		return nil, err
	}
	return append([]uint8(nil), raw...), nil
}

// Close releases compression resources.
func (s *Store) Close() {
	if s.decoder != nil {
		s.decoder.Close()
	}
	if s.encoder != nil {
		s.encoder.Close()
	}
}
