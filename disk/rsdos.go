package disk

import (
	"errors"
	"strings"
)

/*
	TRS-80 Color Computer RS-DOS. Allocation is by granule (9 sectors,
	2304 bytes); the granule map lives in track 17 sector 2 and the
	directory in track 17 sectors 3-11. A FAT byte is either the next
	granule of a chain or a C0-C9 terminator carrying the sector count
	of the final granule.
*/

const RSDOS_DIR_TRACK = 17
const RSDOS_FAT_SECTOR = 2
const RSDOS_DIR_FIRST_SECTOR = 3
const RSDOS_DIR_LAST_SECTOR = 11
const RSDOS_GRANULE_COUNT = 68
const RSDOS_SECTORS_PER_GRANULE = 9
const RSDOS_GRANULE_BYTES = RSDOS_SECTORS_PER_GRANULE * 256
const RSDOS_ENTRY_SIZE = 32
const RSDOS_ENTRIES_PER_SECTOR = 8

const (
	rsdosFATLastBase = 0xC0
	rsdosFATLastTop  = 0xC9
	rsdosFATSystem   = 0xFC
	rsdosFATFree     = 0xFF
)

type RSDOSFileDescriptor struct {
	Data []byte
}

func (fd *RSDOSFileDescriptor) IsScratched() bool {
	return fd.Data[0] == 0x00
}

func (fd *RSDOSFileDescriptor) IsUnused() bool {
	return fd.Data[0] == 0xFF
}

func (fd *RSDOSFileDescriptor) Name() string {
	base := strings.TrimRight(string(fd.Data[0:8]), " \x00")
	ext := strings.TrimRight(string(fd.Data[8:11]), " \x00")
	if ext != "" {
		base += "." + ext
	}
	return strings.ToLower(base)
}

func (fd *RSDOSFileDescriptor) Ext() string {
	return strings.TrimRight(string(fd.Data[8:11]), " \x00")
}

func (fd *RSDOSFileDescriptor) Type() int {
	return int(fd.Data[11])
}

func (fd *RSDOSFileDescriptor) TypeLabel() string {
	switch fd.Data[11] {
	case 0:
		return "BAS"
	case 1:
		return "DAT"
	case 2:
		return "BIN"
	case 3:
		return "TXT"
	}
	return "UNK"
}

func (fd *RSDOSFileDescriptor) IsASCII() bool {
	return fd.Data[12] == 0xFF
}

func (fd *RSDOSFileDescriptor) FirstGranule() int {
	return int(fd.Data[13])
}

func (fd *RSDOSFileDescriptor) LastSectorBytes() int {
	return int(fd.Data[14])*256 + int(fd.Data[15])
}

type rsdosReader struct{}

func (rsdosReader) Label() string { return "TRS-80 RS-DOS" }

func rsdosSector(img *Image, track, sector int) []byte {
	// RS-DOS numbers sectors from 1
	if sector < 1 || sector > 18 {
		return nil
	}
	offset := (track*18 + (sector - 1)) * 256
	return img.Read(offset, 256)
}

func rsdosFAT(img *Image) []byte {
	data := rsdosSector(img, RSDOS_DIR_TRACK, RSDOS_FAT_SECTOR)
	if data == nil || len(data) < RSDOS_GRANULE_COUNT {
		return nil
	}
	return data[:RSDOS_GRANULE_COUNT]
}

func rsdosFATEntryPlausible(v byte) bool {
	return v <= 0x8F ||
		(v >= rsdosFATLastBase && v <= rsdosFATLastTop) ||
		v == rsdosFATSystem || v == rsdosFATFree
}

// CanRead wants a CoCo-sized image whose granule map is at least 90%
// plausible. A map with no free granule only passes when the first
// directory entry also looks real, so a buffer of repeated garbage
// cannot sneak through.
func (rsdosReader) CanRead(img *Image) bool {
	if len(img.Data) < 140*1024 || len(img.Data) > 380*1024 {
		return false
	}

	fat := rsdosFAT(img)
	if fat == nil {
		return false
	}

	plausible := 0
	free := 0
	for _, v := range fat {
		if rsdosFATEntryPlausible(v) {
			plausible++
		}
		if v == rsdosFATFree {
			free++
		}
	}

	if plausible*10 < RSDOS_GRANULE_COUNT*9 {
		return false
	}

	if free == 0 {
		dir := rsdosSector(img, RSDOS_DIR_TRACK, RSDOS_DIR_FIRST_SECTOR)
		if dir == nil {
			return false
		}
		fd := RSDOSFileDescriptor{Data: dir[:RSDOS_ENTRY_SIZE]}
		if fd.IsUnused() || fd.IsScratched() || !mostlyPrintable(fd.Data[0:8], 0) {
			return false
		}
	}

	return true
}

func (r rsdosReader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	fat := rsdosFAT(img)
	if fat == nil {
		return nil, errors.New("no granule map")
	}

	cat := &DiskCatalog{
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	for sector := RSDOS_DIR_FIRST_SECTOR; sector <= RSDOS_DIR_LAST_SECTOR; sector++ {
		data := rsdosSector(img, RSDOS_DIR_TRACK, sector)
		if data == nil {
			break
		}

		for slot := 0; slot < RSDOS_ENTRIES_PER_SECTOR; slot++ {
			fd := RSDOSFileDescriptor{Data: data[slot*RSDOS_ENTRY_SIZE : (slot+1)*RSDOS_ENTRY_SIZE]}

			if fd.IsUnused() {
				// unused entry ends the directory
				return cat, nil
			}
			if fd.IsScratched() {
				continue
			}

			raw := rsdosExtractFile(img, fat, &fd)
			isImg, hint := false, ""
			if fd.Type() == 2 {
				isImg, hint = classifyImage("coco", fd.Ext(), len(raw))
			}

			cat.Entries = append(cat.Entries, CatalogEntry{
				Name:          fd.Name(),
				FileTypeLabel: fd.TypeLabel(),
				Size:          len(raw),
				BlocksUsed:    (len(raw) + RSDOS_GRANULE_BYTES - 1) / RSDOS_GRANULE_BYTES,
				Length:        len(raw),
				RawData:       raw,
				IsImage:       isImg,
				ImageTypeHint: hint,
			})
		}
	}

	return cat, nil
}

// rsdosGranuleOffset maps a granule number to its byte offset. Two
// granules per track, with the directory track skipped.
func rsdosGranuleOffset(granule int) int {
	track := granule / 2
	if track >= RSDOS_DIR_TRACK {
		track++
	}
	return track*18*256 + (granule%2)*RSDOS_GRANULE_BYTES
}

// rsdosExtractFile follows the granule chain. The iteration cap equals
// the granule count, so a looping map terminates with a bounded result
// instead of hanging.
func rsdosExtractFile(img *Image, fat []byte, fd *RSDOSFileDescriptor) []byte {

	var out []byte
	g := fd.FirstGranule()

	for steps := 0; steps < RSDOS_GRANULE_COUNT; steps++ {
		if g >= len(fat) {
			break
		}

		next := fat[g]

		if next >= rsdosFATLastBase && next <= rsdosFATLastTop {
			sectors := int(next & 0x0F)
			if sectors > RSDOS_SECTORS_PER_GRANULE {
				sectors = RSDOS_SECTORS_PER_GRANULE
			}
			if sectors == 0 {
				break
			}
			chunk := img.Read(rsdosGranuleOffset(g), sectors*256)
			if chunk == nil {
				break
			}
			out = append(out, chunk...)
			// trim the final sector to the directory's byte count
			lastBytes := fd.LastSectorBytes()
			if lastBytes > 0 && lastBytes <= 256 {
				out = out[:len(out)-256+lastBytes]
			}
			break
		}

		if next > 0x8F {
			// free or system granule in the middle of a chain
			break
		}

		chunk := img.Read(rsdosGranuleOffset(g), RSDOS_GRANULE_BYTES)
		if chunk == nil {
			break
		}
		out = append(out, chunk...)
		g = int(next)
	}

	return out
}
