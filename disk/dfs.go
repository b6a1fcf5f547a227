package disk

import (
	"errors"
	"strings"
)

/*
	Acorn DFS keeps its whole catalog in the first two 256 byte
	sectors: the disk title is split across both, sector 1 carries the
	entry count and total sector count, and each file is a single
	contiguous run of sectors.
*/

const DFS_MAX_ENTRIES = 31
const DFS_ENTRY_SIZE = 8
const DFS_CATALOG_SECTORS = 2

type DFSFileDescriptor struct {
	nameData []byte // 8 bytes in sector 0
	attrData []byte // 8 bytes in sector 1
}

func (fd *DFSFileDescriptor) Name() string {
	s := ""
	for i := 0; i < 7; i++ {
		ch := fd.nameData[i] & 0x7F
		if ch == 0 || ch == ' ' {
			break
		}
		s += string(rune(ch))
	}
	dir := fd.nameData[7] & 0x7F
	if dir != 0 && dir != ' ' && dir != '$' {
		s = string(rune(dir)) + "." + s
	}
	return strings.ToLower(s)
}

func (fd *DFSFileDescriptor) IsLocked() bool {
	return fd.nameData[7]&0x80 != 0
}

func (fd *DFSFileDescriptor) LoadAddress() int {
	addr := int(fd.attrData[0]) + 256*int(fd.attrData[1])
	addr += int(fd.attrData[6]&0x0C) >> 2 << 16
	return addr
}

func (fd *DFSFileDescriptor) ExecAddress() int {
	addr := int(fd.attrData[2]) + 256*int(fd.attrData[3])
	addr += int(fd.attrData[6]&0xC0) >> 6 << 16
	return addr
}

func (fd *DFSFileDescriptor) Length() int {
	l := int(fd.attrData[4]) + 256*int(fd.attrData[5])
	l += int(fd.attrData[6]&0x30) >> 4 << 16
	return l
}

func (fd *DFSFileDescriptor) StartSector() int {
	return int(fd.attrData[7]) + 256*int(fd.attrData[6]&0x03)
}

type dfsReader struct{}

func (dfsReader) Label() string { return "Acorn DFS" }

func dfsSizeClassOK(size int) bool {
	for _, class := range []int{DFS_100KB_DISK_BYTES, DFS_200KB_DISK_BYTES, DFS_400KB_DISK_BYTES} {
		diff := size - class
		if diff < 0 {
			diff = -diff
		}
		if diff <= class/10 {
			return true
		}
	}
	return false
}

// CanRead gates on size class, a sane entry-count byte, a total sector
// count that fits the image, and a mostly-printable disk title.
func (dfsReader) CanRead(img *Image) bool {
	if len(img.Data) < DFS_CATALOG_SECTORS*256 || !dfsSizeClassOK(len(img.Data)) {
		return false
	}

	s0 := img.Read(0, 256)
	s1 := img.Read(256, 256)

	entryBytes := int(s1[5])
	if entryBytes > DFS_MAX_ENTRIES*8 || entryBytes%8 != 0 {
		return false
	}

	totalSectors := int(s1[7]) + 256*int(s1[6]&0x03)
	if totalSectors < DFS_CATALOG_SECTORS || totalSectors*256 > len(img.Data)+256 {
		return false
	}

	title := append(append([]byte{}, s0[0:8]...), s1[0:4]...)
	return mostlyPrintable(title, 2)
}

func (r dfsReader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	s0 := img.Read(0, 256)
	s1 := img.Read(256, 256)
	if s0 == nil || s1 == nil {
		return nil, errors.New("catalog sectors missing")
	}

	title := strings.TrimRight(strings.TrimRight(string(s0[0:8]), "\x00 ")+strings.TrimRight(string(s1[0:4]), "\x00 "), " ")

	cat := &DiskCatalog{
		DiskName:        printableOnly(title),
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	entryCount := int(s1[5]) / 8
	totalSectors := int(s1[7]) + 256*int(s1[6]&0x03)

	for i := 0; i < entryCount && i < DFS_MAX_ENTRIES; i++ {
		off := 8 + i*DFS_ENTRY_SIZE
		fd := DFSFileDescriptor{
			nameData: s0[off : off+DFS_ENTRY_SIZE],
			attrData: s1[off : off+DFS_ENTRY_SIZE],
		}

		start := fd.StartSector()
		if start > totalSectors {
			// Some exporters scribble on the start-sector high bits;
			// retry with just the low byte before giving up on the
			// entry. Compatibility shim, not DFS semantics.
			start = int(fd.attrData[7])
		}

		// Sectors 0 and 1 are the catalog itself; a file cannot start
		// there.
		if start <= 1 || start > totalSectors {
			continue
		}
		if fd.Name() == "" {
			continue
		}

		raw := dfsExtractFile(img, start, fd.Length())
		isImg, hint := classifyImage("bbc", "", fd.Length())

		cat.Entries = append(cat.Entries, CatalogEntry{
			Name:          fd.Name(),
			FileTypeLabel: "FILE",
			Size:          fd.Length(),
			BlocksUsed:    (fd.Length() + 255) / 256,
			LoadAddress:   fd.LoadAddress(),
			Length:        fd.Length(),
			RawData:       raw,
			IsImage:       isImg,
			ImageTypeHint: hint,
		})
	}

	return cat, nil
}

// dfsExtractFile copies one contiguous run, clipped to the image.
func dfsExtractFile(img *Image, startSector, length int) []byte {
	offset := startSector * 256
	if offset >= len(img.Data) || length < 0 {
		return nil
	}
	if offset+length > len(img.Data) {
		length = len(img.Data) - offset
	}
	out := make([]byte, length)
	copy(out, img.Data[offset:offset+length])
	return out
}

func printableOnly(s string) string {
	out := ""
	for _, r := range s {
		if r >= 32 && r < 127 {
			out += string(r)
		}
	}
	return out
}
