package disk

import (
	"path"
	"strings"
)

// CatalogEntry is the normalized, filesystem-agnostic view of one file.
// Built once by a reader and never mutated afterwards.
type CatalogEntry struct {
	Name          string
	FileTypeLabel string
	Size          int
	BlocksUsed    int
	LoadAddress   int
	Length        int
	RawData       []byte
	IsImage       bool
	ImageTypeHint string
	IsDirectory   bool
	Children      []CatalogEntry
}

// DiskCatalog is the final output of Detect: one per recognized image.
type DiskCatalog struct {
	DiskName        string
	DiskFormatLabel string
	DiskSizeBytes   int
	Entries         []CatalogEntry
}

// FileCount counts file entries recursively, excluding directories.
func (c *DiskCatalog) FileCount() int {
	var walk func(list []CatalogEntry) int
	walk = func(list []CatalogEntry) int {
		n := 0
		for _, e := range list {
			if e.IsDirectory {
				n += walk(e.Children)
			} else {
				n++
			}
		}
		return n
	}
	return walk(c.Entries)
}

// Flatten returns every file entry with directory components joined
// into the name, for flat reports over hierarchical volumes.
func (c *DiskCatalog) Flatten() []CatalogEntry {
	var out []CatalogEntry
	var walk func(prefix string, list []CatalogEntry)
	walk = func(prefix string, list []CatalogEntry) {
		for _, e := range list {
			if e.IsDirectory {
				walk(path.Join(prefix, e.Name), e.Children)
				continue
			}
			f := e
			f.Name = path.Join(prefix, e.Name)
			out = append(out, f)
		}
	}
	walk("", c.Entries)
	return out
}

// Screen-dump byte counts per platform graphics mode. Classification is
// by size/extension heuristics only; pixel interpretation belongs to
// the downstream decoders.
var imageSizeHints = map[string][]struct {
	size int
	hint string
}{
	"apple": {
		{8192, "apple-hgr"},
		{8184, "apple-hgr"},
		{16384, "apple-dhgr"},
	},
	"bbc": {
		{20480, "bbc-mode012"},
		{10240, "bbc-mode45"},
	},
	"coco": {
		{6144, "coco-pmode34"},
		{3072, "coco-pmode12"},
		{1536, "coco-pmode0"},
	},
	"msx": {
		{14343, "msx-screen2"},
		{16384, "msx-screen2"},
	},
	"zx": {
		{6912, "zx-screen"},
		{6144, "zx-screen-mono"},
	},
}

var imageExtHints = map[string]string{
	"sc2": "msx-screen2",
	"ge5": "msx-screen5",
	"scr": "zx-screen",
	"pic": "apple-hgr",
	"hgr": "apple-hgr",
}

// classifyImage tags entries that look like a known graphics payload.
// platform keys into imageSizeHints; ext is the file's type letter or
// extension with no dot.
func classifyImage(platform, ext string, size int) (bool, string) {
	if hint, ok := imageExtHints[strings.ToLower(ext)]; ok {
		return true, hint
	}
	for _, h := range imageSizeHints[platform] {
		if size == h.size {
			return true, h.hint
		}
	}
	return false, ""
}

// PokeToAscii maps Apple screen-poke bytes back to ASCII.
func PokeToAscii(v uint) int {
	v = v & 1023

	switch {
	case v <= 31:
		return int(64 + (v % 32))
	case v <= 63:
		return int(32 + (v % 32))
	case v <= 95:
		return int(64 + (v % 32))
	case v <= 127:
		return int(32 + (v % 32))
	case v <= 159:
		return int(64 + (v % 32))
	case v <= 191:
		return int(32 + (v % 32))
	case v <= 223:
		return int(64 + (v % 32))
	default:
		return int(96 + (v % 32))
	}
}

func mostlyPrintable(b []byte, allowed int) bool {
	bad := 0
	for _, v := range b {
		c := v & 0x7f
		if (c < 32 || c > 126) && c != 0 && c != 13 {
			bad++
		}
	}
	return bad <= allowed
}
