package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const STD_BYTES_PER_SECTOR = 256
const STD_TRACKS_PER_DISK = 35
const STD_SECTORS_PER_TRACK = 16
const STD_SECTORS_PER_TRACK_OLD = 13
const STD_DISK_BYTES = STD_TRACKS_PER_DISK * STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR
const STD_DISK_BYTES_OLD = STD_TRACKS_PER_DISK * STD_SECTORS_PER_TRACK_OLD * STD_BYTES_PER_SECTOR

const PRODOS_BLOCK_SIZE = 512
const PRODOS_800KB_BLOCKS = 1600
const PRODOS_800KB_DISK_BYTES = PRODOS_BLOCK_SIZE * PRODOS_800KB_BLOCKS
const PRODOS_400KB_BLOCKS = 800
const PRODOS_400KB_DISK_BYTES = PRODOS_BLOCK_SIZE * PRODOS_400KB_BLOCKS
const PRODOS_BLOCKS_PER_TRACK = 8
const PRODOS_BLOCKS_PER_DISK = 280
const PRODOS_ENTRY_SIZE = 39

const DFS_100KB_DISK_BYTES = 100 * 1024
const DFS_200KB_DISK_BYTES = 200 * 1024
const DFS_400KB_DISK_BYTES = 400 * 1024

const RSDOS_160KB_DISK_BYTES = 35 * 18 * 256
const RSDOS_180KB_DISK_BYTES = 40 * 18 * 256

const FAT12_360KB_DISK_BYTES = 360 * 1024
const FAT12_720KB_DISK_BYTES = 720 * 1024

const TRDOS_160KB_DISK_BYTES = 40 * 16 * 256
const TRDOS_320KB_DISK_BYTES = 80 * 16 * 256
const TRDOS_640KB_DISK_BYTES = 80 * 2 * 16 * 256

func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Image is an immutable disk image buffer. All parsing is a read-only
// projection over offsets into Data; nothing in this package writes to it.
type Image struct {
	Data     []byte
	Filename string
	Geometry DiskGeometry
}

func NewImage(data []byte, filename string) *Image {
	return &Image{
		Data:     data,
		Filename: strings.ToLower(filename),
		Geometry: GeometryForSize(len(data)),
	}
}

// Read returns length bytes at offset, or nil when the range leaves the
// buffer. Callers treat nil as "entry damaged, skip".
func (img *Image) Read(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > len(img.Data) {
		return nil
	}
	return img.Data[offset : offset+length]
}

// Sector returns one sector of the image's geometry, counting sectors
// linearly within each track.
func (img *Image) Sector(track, sector int) []byte {
	g := img.Geometry
	if track < 0 || sector < 0 || g.SectorsPerTrack*g.Sides == 0 || sector >= g.SectorsPerTrack*g.Sides {
		return nil
	}
	offset := (track*g.SectorsPerTrack*g.Sides + sector) * g.BytesPerSector
	return img.Read(offset, g.BytesPerSector)
}

// SectorN returns the n'th sector counting linearly from the start of
// the image, independent of track layout.
func (img *Image) SectorN(n int) []byte {
	if n < 0 {
		return nil
	}
	return img.Read(n*img.Geometry.BytesPerSector, img.Geometry.BytesPerSector)
}

// reader is one filesystem strategy. CanRead is a cheap gate over size
// and a handful of fixed-offset bytes; ReadCatalog does the full parse
// including per-entry extraction. Implementations never panic on any
// input and never write to the image.
type reader interface {
	Label() string
	CanRead(img *Image) bool
	ReadCatalog(img *Image) (*DiskCatalog, error)
}

// Probe priority is fixed and significant: a blob parseable by two
// filesystems resolves to whichever probe runs first.
var readers = []reader{
	prodosReader{},
	appleDOSReader{},
	dfsReader{},
	rsdosReader{},
	fat12Reader{},
	trdosReader{},
}

// DOS 3.3 logical-to-physical interleave for 140K Apple images.
var DOS_33_SECTOR_ORDER = []int{
	0x00, 0x07, 0x0E, 0x06, 0x0D, 0x05, 0x0C, 0x04,
	0x0B, 0x03, 0x0A, 0x02, 0x09, 0x01, 0x08, 0x0F,
}

// ProDOS logical-to-physical interleave. Not an involution; round
// tripping needs InvertSectorOrder.
var PRODOS_SECTOR_ORDER = []int{
	0x00, 0x08, 0x01, 0x09, 0x02, 0x0A, 0x03, 0x0B,
	0x04, 0x0C, 0x05, 0x0D, 0x06, 0x0E, 0x07, 0x0F,
}

var LINEAR_SECTOR_ORDER = []int{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
}

func InvertSectorOrder(order []int) []int {
	inv := make([]int, len(order))
	for i, v := range order {
		inv[v] = i
	}
	return inv
}

// ReorderSectors rebuilds a 140K image with each track's sectors
// permuted: output sector i of every track is input sector order[i].
// Non-standard sizes are returned unchanged.
func ReorderSectors(data []byte, order []int) []byte {
	if len(data) != STD_DISK_BYTES || len(order) != STD_SECTORS_PER_TRACK {
		return data
	}
	out := make([]byte, len(data))
	for track := 0; track < STD_TRACKS_PER_DISK; track++ {
		base := track * STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR
		for s := 0; s < STD_SECTORS_PER_TRACK; s++ {
			src := base + order[s]*STD_BYTES_PER_SECTOR
			dst := base + s*STD_BYTES_PER_SECTOR
			copy(out[dst:dst+STD_BYTES_PER_SECTOR], data[src:src+STD_BYTES_PER_SECTOR])
		}
	}
	return out
}

// Detect recognizes a raw disk image and returns its catalog, or nil if
// no supported filesystem claims it. The filename is only a hint for
// graphics classification, never for format decisions.
func Detect(data []byte, filename string) *DiskCatalog {

	if unwrapped, ok := Unwrap2MG(data); ok {
		data = unwrapped
	}

	img := NewImage(data, filename)

	var emptyProDOS *DiskCatalog

	for _, r := range readers {
		if !r.CanRead(img) {
			continue
		}
		cat, err := r.ReadCatalog(img)
		if err != nil || cat == nil {
			continue
		}
		if _, isPD := r.(prodosReader); isPD && len(cat.Entries) == 0 {
			// A structurally valid but empty ProDOS volume may really
			// be a sector-order mismatch; give the normalizer a shot.
			emptyProDOS = cat
			continue
		}
		return cat
	}

	// Disk-order fallback: 140K Apple images exist in both interleaves.
	if len(data) == STD_DISK_BYTES {
		swapped := NewImage(ReorderSectors(data, PRODOS_SECTOR_ORDER), filename)
		pd := prodosReader{}
		if pd.CanRead(swapped) {
			if cat, err := pd.ReadCatalog(swapped); err == nil && cat != nil && len(cat.Entries) > 0 {
				return cat
			}
		}
	}

	return emptyProDOS
}
