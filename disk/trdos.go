package disk

import (
	"errors"
	"strings"
)

/*
	ZX Spectrum TR-DOS (Beta Disk). The catalog occupies track 0
	sectors 0-7 (16 byte entries, 128 max) and sector 8 is the disk
	info sector carrying the format signature and the volume label.
	Files are single contiguous runs of 256 byte sectors.
*/

const TRDOS_INFO_SECTOR = 8
const TRDOS_CATALOG_SECTORS = 8
const TRDOS_ENTRY_SIZE = 16
const TRDOS_ENTRIES_PER_SECTOR = 16
const TRDOS_SECTORS_PER_TRACK = 16

const TRDOS_SIGNATURE = 0x10
const TRDOS_SIGNATURE_OFFSET = 0xE7
const TRDOS_DISKTYPE_OFFSET = 0xE3
const TRDOS_FILECOUNT_OFFSET = 0xE4
const TRDOS_LABEL_OFFSET = 0xF5

var trdosDiskTypes = map[byte]string{
	0x16: "DS 80 track",
	0x17: "DS 40 track",
	0x18: "SS 80 track",
	0x19: "SS 40 track",
}

type TRDOSFileDescriptor struct {
	Data []byte
}

func (fd *TRDOSFileDescriptor) IsEnd() bool {
	return fd.Data[0] == 0x00
}

func (fd *TRDOSFileDescriptor) IsDeleted() bool {
	return fd.Data[0] == 0x01
}

func (fd *TRDOSFileDescriptor) Name() string {
	s := strings.TrimRight(string(fd.Data[0:8]), " \x00")
	return strings.ToLower(printableOnly(s))
}

func (fd *TRDOSFileDescriptor) TypeChar() byte {
	return fd.Data[8]
}

func (fd *TRDOSFileDescriptor) TypeLabel() string {
	switch fd.Data[8] {
	case 'B':
		return "BAS"
	case 'C':
		return "CODE"
	case 'D':
		return "DATA"
	case '#':
		return "PRINT"
	}
	return string(rune(fd.Data[8] & 0x7F))
}

func (fd *TRDOSFileDescriptor) StartAddress() int {
	return int(fd.Data[9]) + 256*int(fd.Data[10])
}

func (fd *TRDOSFileDescriptor) Length() int {
	return int(fd.Data[11]) + 256*int(fd.Data[12])
}

func (fd *TRDOSFileDescriptor) SectorCount() int {
	return int(fd.Data[13])
}

func (fd *TRDOSFileDescriptor) StartSector() int {
	return int(fd.Data[14])
}

func (fd *TRDOSFileDescriptor) StartTrack() int {
	return int(fd.Data[15])
}

type trdosReader struct{}

func (trdosReader) Label() string { return "ZX Spectrum TR-DOS" }

func trdosInfoSector(img *Image) []byte {
	return img.Read(TRDOS_INFO_SECTOR*256, 256)
}

// CanRead gates on the Spectrum size range plus the two fixed info
// sector bytes: the 0x10 signature and a known disk type.
func (trdosReader) CanRead(img *Image) bool {
	if len(img.Data) < 160*1024 || len(img.Data) > 860*1024 {
		return false
	}
	info := trdosInfoSector(img)
	if info == nil {
		return false
	}
	if info[TRDOS_SIGNATURE_OFFSET] != TRDOS_SIGNATURE {
		return false
	}
	_, ok := trdosDiskTypes[info[TRDOS_DISKTYPE_OFFSET]]
	return ok
}

func (r trdosReader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	info := trdosInfoSector(img)
	if info == nil {
		return nil, errors.New("no disk info sector")
	}

	label := ""
	if TRDOS_LABEL_OFFSET+8 <= len(info) {
		label = printableOnly(strings.TrimRight(string(info[TRDOS_LABEL_OFFSET:TRDOS_LABEL_OFFSET+8]), " \x00"))
	}

	cat := &DiskCatalog{
		DiskName:        label,
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	for sector := 0; sector < TRDOS_CATALOG_SECTORS; sector++ {
		data := img.Read(sector*256, 256)
		if data == nil {
			break
		}

		for slot := 0; slot < TRDOS_ENTRIES_PER_SECTOR; slot++ {
			fd := TRDOSFileDescriptor{Data: data[slot*TRDOS_ENTRY_SIZE : (slot+1)*TRDOS_ENTRY_SIZE]}

			if fd.IsEnd() {
				return cat, nil
			}
			if fd.IsDeleted() || fd.Name() == "" {
				continue
			}

			raw := trdosExtractFile(img, &fd)
			isImg, hint := false, ""
			if fd.TypeChar() == 'C' {
				isImg, hint = classifyImage("zx", "", fd.Length())
			}

			cat.Entries = append(cat.Entries, CatalogEntry{
				Name:          fd.Name(),
				FileTypeLabel: fd.TypeLabel(),
				Size:          len(raw),
				BlocksUsed:    fd.SectorCount(),
				LoadAddress:   fd.StartAddress(),
				Length:        fd.Length(),
				RawData:       raw,
				IsImage:       isImg,
				ImageTypeHint: hint,
			})
		}
	}

	return cat, nil
}

// trdosExtractFile copies the file's contiguous sector run and trims to
// the declared byte length when it fits inside the run.
func trdosExtractFile(img *Image, fd *TRDOSFileDescriptor) []byte {

	offset := (fd.StartTrack()*TRDOS_SECTORS_PER_TRACK + fd.StartSector()) * 256
	count := fd.SectorCount() * 256

	if offset >= len(img.Data) || count <= 0 {
		return nil
	}
	if offset+count > len(img.Data) {
		count = len(img.Data) - offset
	}

	out := make([]byte, count)
	copy(out, img.Data[offset:offset+count])

	if l := fd.Length(); l > 0 && l <= len(out) {
		out = out[:l]
	}
	return out
}
