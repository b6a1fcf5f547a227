package disk

import (
	"errors"
	"strings"
)

type FileType byte

const (
	FileTypeTXT FileType = 0x00
	FileTypeINT FileType = 0x01
	FileTypeAPP FileType = 0x02
	FileTypeBIN FileType = 0x04
	FileTypeS   FileType = 0x08
	FileTypeREL FileType = 0x10
	FileTypeA   FileType = 0x20
	FileTypeB   FileType = 0x40
)

var AppleDOSTypeMap = map[FileType][2]string{
	0x00: {"TXT", "ASCII Text"},
	0x01: {"INT", "Integer Basic Program"},
	0x02: {"BAS", "Applesoft Basic Program"},
	0x04: {"BIN", "Binary File"},
	0x08: {"S", "S File Type"},
	0x10: {"REL", "Relocatable Object Code"},
	0x20: {"A", "A File Type"},
	0x40: {"B", "B File Type"},
}

func (ft FileType) String() string {
	info, ok := AppleDOSTypeMap[ft]
	if ok {
		return info[1]
	}
	return "Unknown"
}

func (ft FileType) Ext() string {
	info, ok := AppleDOSTypeMap[ft]
	if ok {
		return info[0]
	}
	return "BIN"
}

const APPLEDOS_VTOC_TRACK = 17
const APPLEDOS_ENTRY_SIZE = 35
const APPLEDOS_ENTRIES_PER_SECTOR = 7
const APPLEDOS_TSPAIRS_PER_SECTOR = 122

// VTOC wraps DOS 3.3's Volume Table of Contents sector (T17 S0).
type VTOC struct {
	Data []byte
}

func (v *VTOC) GetCatalogStart() (int, int) {
	return int(v.Data[1]), int(v.Data[2])
}

func (v *VTOC) GetDOSVersion() byte {
	return v.Data[3]
}

func (v *VTOC) GetVolumeID() byte {
	return v.Data[6]
}

func (v *VTOC) GetTracks() int {
	return int(v.Data[0x34])
}

func (v *VTOC) GetSectors() int {
	return int(v.Data[0x35])
}

// FileDescriptor wraps one 35 byte DOS 3.3 catalog entry.
type FileDescriptor struct {
	Data []byte
}

func (fd *FileDescriptor) IsDeleted() bool {
	return fd.Data[0] == 0xFF
}

func (fd *FileDescriptor) IsUnused() bool {
	return fd.Data[0] == 0x00 && fd.Data[1] == 0x00
}

func (fd *FileDescriptor) GetTrackSectorListStart() (int, int) {
	return int(fd.Data[0]), int(fd.Data[1])
}

func (fd *FileDescriptor) IsLocked() bool {
	return fd.Data[2]&0x80 != 0
}

func (fd *FileDescriptor) Type() FileType {
	return FileType(fd.Data[2] & 0x7F)
}

func (fd *FileDescriptor) Name() string {
	s := ""
	for _, v := range fd.Data[0x03:0x21] {
		s += string(rune(PokeToAscii(uint(v))))
	}
	return strings.ToLower(strings.Trim(s, " "))
}

func (fd *FileDescriptor) TotalSectors() int {
	return int(fd.Data[0x21]) + 256*int(fd.Data[0x22])
}

type appleDOSReader struct{}

func (appleDOSReader) Label() string { return "Apple DOS 3.3" }

func appleDOSSector(img *Image, track, sector int) []byte {
	if track < 0 || sector < 0 || sector >= STD_SECTORS_PER_TRACK {
		return nil
	}
	offset := (track*STD_SECTORS_PER_TRACK + sector) * STD_BYTES_PER_SECTOR
	return img.Read(offset, STD_BYTES_PER_SECTOR)
}

func appleDOSVTOC(img *Image) *VTOC {
	data := appleDOSSector(img, APPLEDOS_VTOC_TRACK, 0)
	if data == nil {
		return nil
	}
	return &VTOC{Data: data}
}

// CanRead wants the classic 140K size and a VTOC whose catalog-track
// byte points back at track 17.
func (appleDOSReader) CanRead(img *Image) bool {
	if len(img.Data) != STD_DISK_BYTES {
		return false
	}
	vtoc := appleDOSVTOC(img)
	if vtoc == nil {
		return false
	}
	ct, _ := vtoc.GetCatalogStart()
	return ct == APPLEDOS_VTOC_TRACK
}

func (r appleDOSReader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	vtoc := appleDOSVTOC(img)
	if vtoc == nil {
		return nil, errors.New("no vtoc")
	}

	cat := &DiskCatalog{
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	ct, cs := vtoc.GetCatalogStart()
	seen := map[int]bool{}

	// 35 tracks of catalog chain is already more than a real disk has;
	// the seen map is the actual cycle guard.
	for ct != 0 {
		if ct >= STD_TRACKS_PER_DISK || cs >= STD_SECTORS_PER_TRACK || seen[100*ct+cs] {
			break
		}
		seen[100*ct+cs] = true

		data := appleDOSSector(img, ct, cs)
		if data == nil {
			break
		}

		for slot := 0; slot < APPLEDOS_ENTRIES_PER_SECTOR; slot++ {
			pos := 0x0B + APPLEDOS_ENTRY_SIZE*slot
			fd := FileDescriptor{Data: data[pos : pos+APPLEDOS_ENTRY_SIZE]}

			if fd.IsUnused() || fd.IsDeleted() || fd.Type().String() == "Unknown" || fd.TotalSectors() == 0 {
				continue
			}

			length, addr, raw := appleDOSExtractFile(img, &fd)
			isImg, hint := false, ""
			if fd.Type() == FileTypeBIN {
				isImg, hint = classifyImage("apple", "", length)
			}

			cat.Entries = append(cat.Entries, CatalogEntry{
				Name:          fd.Name(),
				FileTypeLabel: fd.Type().Ext(),
				Size:          length,
				BlocksUsed:    fd.TotalSectors(),
				LoadAddress:   addr,
				Length:        length,
				RawData:       raw,
				IsImage:       isImg,
				ImageTypeHint: hint,
			})
		}

		ct, cs = int(data[1]), int(data[2])
	}

	return cat, nil
}

// appleDOSFileSectors walks the track/sector list chain for a file.
// A zero track byte terminates a list; a repeated list sector means a
// cycle and ends the walk.
func appleDOSFileSectors(img *Image, fd *FileDescriptor) [][2]int {

	var tslist [][2]int
	tsmap := map[int]bool{}

	tl, sl := fd.GetTrackSectorListStart()

	for tl != 0 || sl != 0 {
		if tl >= STD_TRACKS_PER_DISK || sl >= STD_SECTORS_PER_TRACK || tsmap[100*tl+sl] {
			break
		}
		tsmap[100*tl+sl] = true

		data := appleDOSSector(img, tl, sl)
		if data == nil {
			break
		}

		// 122 pairs fit between 0x0C and the end of the sector.
		ptr := 0x0C
		for ptr+1 < 0x100 {
			t, s := int(data[ptr]), int(data[ptr+1])
			if t == 0 && s == 0 || t >= STD_TRACKS_PER_DISK || s >= STD_SECTORS_PER_TRACK {
				break
			}
			tslist = append(tslist, [2]int{t, s})
			ptr += 2
		}

		tl, sl = int(data[1]), int(data[2])
	}

	return tslist
}

// appleDOSExtractFile reads a file's sectors and peels the in-band
// length/address header DOS 3.3 stores at the front of most types.
func appleDOSExtractFile(img *Image, fd *FileDescriptor) (int, int, []byte) {

	var file []byte
	for _, pair := range appleDOSFileSectors(img, fd) {
		chunk := appleDOSSector(img, pair[0], pair[1])
		if chunk == nil {
			break
		}
		file = append(file, chunk...)
	}

	if len(file) == 0 {
		return 0, 0, nil
	}

	clip := func(l, skip int) int {
		if l+skip > len(file) {
			l = len(file) - skip
		}
		if l < 0 {
			l = 0
		}
		return l
	}

	switch fd.Type() {
	case FileTypeINT, FileTypeAPP:
		if len(file) < 2 {
			return 0, 0, nil
		}
		l := clip(int(file[0])+256*int(file[1]), 2)
		return l, 0x801, file[2 : 2+l]
	case FileTypeBIN:
		if len(file) < 4 {
			return 0, 0, nil
		}
		addr := int(file[0]) + 256*int(file[1])
		l := clip(int(file[2])+256*int(file[3]), 4)
		return l, addr, file[4 : 4+l]
	case FileTypeTXT:
		return len(file), 0, file
	default:
		if len(file) < 2 {
			return 0, 0, nil
		}
		l := clip(int(file[0])+256*int(file[1]), 2)
		return l, 0, file[2 : 2+l]
	}
}
