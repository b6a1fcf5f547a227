package disk

import (
	"errors"
	"strings"
)

type ProDOSStorageType byte

const (
	StorageType_Inactive      ProDOSStorageType = 0x0
	StorageType_Seedling      ProDOSStorageType = 0x1
	StorageType_Sapling       ProDOSStorageType = 0x2
	StorageType_Tree          ProDOSStorageType = 0x3
	StorageType_SubDir_File   ProDOSStorageType = 0xD
	StorageType_SubDir_Header ProDOSStorageType = 0xE
	StorageType_Volume_Header ProDOSStorageType = 0xF
)

type ProDOSFileType byte

var ProDOSTypeMap = map[ProDOSFileType][2]string{
	0x00: {"UNK", "Unknown"},
	0x01: {"BAD", "Bad Block"},
	0x04: {"TXT", "ASCII Text"},
	0x06: {"BIN", "Binary File"},
	0x08: {"FOT", "HiRes/Double HiRes Graphics"},
	0x0F: {"DIR", "ProDOS Directory"},
	0x19: {"ADB", "AppleWorks Database"},
	0x1A: {"AWP", "AppleWorks Word Processing"},
	0x1B: {"ASP", "AppleWorks Spreadsheet"},
	0xC0: {"PNT", "Apple IIgs Packed Super HiRes"},
	0xC1: {"PIC", "Apple IIgs Super HiRes"},
	0xC8: {"FON", "Apple IIgs Font"},
	0xE0: {"LBR", "Archive"},
	0xF0: {"CMD", "ProDOS Command File"},
	0xFA: {"INT", "Integer BASIC Program"},
	0xFB: {"IVR", "Integer BASIC Variables"},
	0xFC: {"BAS", "Applesoft BASIC Program"},
	0xFD: {"VAR", "Applesoft BASIC Variables"},
	0xFE: {"REL", "EDASM Relocatable Code"},
	0xFF: {"SYS", "ProDOS-8 System File"},
}

func (t ProDOSFileType) String() string {
	info, ok := ProDOSTypeMap[t]
	if ok {
		return info[1]
	}
	return "Unknown"
}

func (t ProDOSFileType) Ext() string {
	info, ok := ProDOSTypeMap[t]
	if ok {
		return info[0]
	}
	return "BIN"
}

// ProDOSFileDescriptor wraps one 39 byte directory entry.
type ProDOSFileDescriptor struct {
	Data []byte
}

func (fd *ProDOSFileDescriptor) GetNameLength() int {
	return int(fd.Data[0] & 0xF)
}

func (fd *ProDOSFileDescriptor) GetStorageType() ProDOSStorageType {
	return ProDOSStorageType(fd.Data[0] >> 4)
}

func (fd *ProDOSFileDescriptor) Name() string {
	l := fd.GetNameLength()
	if l < 1 || l > 15 {
		return ""
	}
	s := ""
	for _, v := range fd.Data[1 : 1+l] {
		s += string(rune(PokeToAscii(uint(v))))
	}
	return strings.ToLower(strings.Trim(s, " "))
}

func (fd *ProDOSFileDescriptor) Type() ProDOSFileType {
	return ProDOSFileType(fd.Data[16])
}

func (fd *ProDOSFileDescriptor) KeyPointer() int {
	return int(fd.Data[17]) + 256*int(fd.Data[18])
}

func (fd *ProDOSFileDescriptor) TotalBlocks() int {
	return int(fd.Data[19]) + 256*int(fd.Data[20])
}

func (fd *ProDOSFileDescriptor) EOF() int {
	return int(fd.Data[21]) + 256*int(fd.Data[22]) + 65536*int(fd.Data[23])
}

func (fd *ProDOSFileDescriptor) AuxType() int {
	return int(fd.Data[31]) + 256*int(fd.Data[32])
}

// VDH wraps a volume or subdirectory header entry.
type VDH struct {
	Data []byte
}

func (h *VDH) GetNameLength() int {
	return int(h.Data[0] & 0xF)
}

func (h *VDH) GetStorageType() ProDOSStorageType {
	return ProDOSStorageType(h.Data[0] >> 4)
}

func (h *VDH) GetVolumeName() string {
	l := h.GetNameLength()
	if l < 1 || l > 15 {
		return ""
	}
	s := ""
	for _, v := range h.Data[1 : 1+l] {
		s += string(rune(PokeToAscii(uint(v))))
	}
	return strings.Trim(s, " ")
}

func (h *VDH) GetEntryLength() int {
	return int(h.Data[31])
}

func (h *VDH) GetEntriesPerBlock() int {
	return int(h.Data[32])
}

func (h *VDH) GetFileCount() int {
	return int(h.Data[33]) + 256*int(h.Data[34])
}

func (h *VDH) GetTotalBlocks() int {
	return int(h.Data[37]) + 256*int(h.Data[38])
}

type prodosReader struct{}

func (prodosReader) Label() string { return "Apple ProDOS" }

func prodosTotalBlocks(img *Image) int {
	return len(img.Data) / PRODOS_BLOCK_SIZE
}

func prodosBlock(img *Image, block int) []byte {
	return img.Read(block*PRODOS_BLOCK_SIZE, PRODOS_BLOCK_SIZE)
}

func prodosVDH(img *Image, block int) *VDH {
	data := prodosBlock(img, block)
	if data == nil {
		return nil
	}
	return &VDH{Data: data[4 : 4+PRODOS_ENTRY_SIZE]}
}

// CanRead wants at least three blocks and a plausible volume directory
// header at block 2: storage type 0xF and a 1-15 character name.
func (prodosReader) CanRead(img *Image) bool {
	if prodosTotalBlocks(img) < 3 {
		return false
	}
	vdh := prodosVDH(img, 2)
	if vdh == nil {
		return false
	}
	if vdh.GetStorageType() != StorageType_Volume_Header {
		return false
	}
	l := vdh.GetNameLength()
	return l >= 1 && l <= 15
}

func (r prodosReader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	vdh := prodosVDH(img, 2)
	if vdh == nil || vdh.GetStorageType() != StorageType_Volume_Header {
		return nil, errors.New("no prodos volume directory")
	}

	cat := &DiskCatalog{
		DiskName:        vdh.GetVolumeName(),
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	// Directory trees are walked with an explicit worklist so that a
	// cyclic or absurdly deep tree on a damaged image cannot blow the
	// stack. Legitimate volumes are shallow.
	type dirJob struct {
		block  int
		depth  int
		attach *[]CatalogEntry
	}

	const maxDirDepth = 16
	visited := map[int]bool{}
	jobs := []dirJob{{block: 2, depth: 0, attach: &cat.Entries}}

	for len(jobs) > 0 {
		job := jobs[0]
		jobs = jobs[1:]

		if job.depth > maxDirDepth || visited[job.block] {
			continue
		}
		visited[job.block] = true

		entries, subdirs := prodosScanDirectory(img, job.block)
		*job.attach = entries
		for i := range *job.attach {
			e := &(*job.attach)[i]
			if e.IsDirectory {
				if len(subdirs) > 0 {
					jobs = append(jobs, dirJob{
						block:  subdirs[0],
						depth:  job.depth + 1,
						attach: &e.Children,
					})
					subdirs = subdirs[1:]
				}
			}
		}
	}

	return cat, nil
}

// prodosScanDirectory reads one directory level. It returns the catalog
// entries in directory order plus the key blocks of any subdirectory
// entries, in the same relative order.
func prodosScanDirectory(img *Image, startBlock int) ([]CatalogEntry, []int) {

	var entries []CatalogEntry
	var subdirs []int

	vdh := prodosVDH(img, startBlock)
	if vdh == nil {
		return entries, subdirs
	}

	entriesPerBlock := vdh.GetEntriesPerBlock()
	if entriesPerBlock < 1 || entriesPerBlock > 13 {
		entriesPerBlock = 13
	}

	filecount := vdh.GetFileCount()
	active := 0

	data := prodosBlock(img, startBlock)
	nextBlock := int(data[2]) + 256*int(data[3])
	blockentries := 2
	entrypointer := 4 + PRODOS_ENTRY_SIZE

	seen := map[int]bool{startBlock: true}
	maxIter := prodosTotalBlocks(img) * entriesPerBlock

	for active < filecount && maxIter > 0 {
		maxIter--

		if entrypointer+PRODOS_ENTRY_SIZE <= len(data) && data[entrypointer] != 0x00 {
			fd := ProDOSFileDescriptor{Data: data[entrypointer : entrypointer+PRODOS_ENTRY_SIZE]}

			switch fd.GetStorageType() {
			case StorageType_Seedling, StorageType_Sapling, StorageType_Tree:
				raw := prodosExtractFile(img, &fd)
				isImg, hint := false, ""
				switch fd.Type() {
				case 0x08: // FOT
					isImg, hint = true, "apple-hgr"
				case 0xC1: // PIC
					isImg, hint = true, "apple-shr"
				case 0x06: // BIN: go by size
					isImg, hint = classifyImage("apple", "", fd.EOF())
				}
				entries = append(entries, CatalogEntry{
					Name:          fd.Name(),
					FileTypeLabel: fd.Type().Ext(),
					Size:          len(raw),
					BlocksUsed:    fd.TotalBlocks(),
					LoadAddress:   fd.AuxType(),
					Length:        fd.EOF(),
					RawData:       raw,
					IsImage:       isImg,
					ImageTypeHint: hint,
				})
			case StorageType_SubDir_File:
				entries = append(entries, CatalogEntry{
					Name:          fd.Name(),
					FileTypeLabel: "DIR",
					IsDirectory:   true,
				})
				subdirs = append(subdirs, fd.KeyPointer())
			}

			active++
		}

		if active >= filecount {
			break
		}

		if blockentries == entriesPerBlock {
			if nextBlock == 0 || seen[nextBlock] {
				break
			}
			seen[nextBlock] = true
			data = prodosBlock(img, nextBlock)
			if data == nil {
				break
			}
			nextBlock = int(data[2]) + 256*int(data[3])
			blockentries = 1
			entrypointer = 4
		} else {
			entrypointer += PRODOS_ENTRY_SIZE
			blockentries++
		}
	}

	return entries, subdirs
}

// prodosExtractFile assembles a file's bytes from its storage chain and
// trims to the directory EOF. Damaged chains yield the bytes recovered
// so far rather than an error.
func prodosExtractFile(img *Image, fd *ProDOSFileDescriptor) []byte {

	eof := fd.EOF()
	total := prodosTotalBlocks(img)

	appendBlock := func(data []byte, block int) []byte {
		remaining := eof - len(data)
		if remaining <= 0 {
			return data
		}
		count := PRODOS_BLOCK_SIZE
		if remaining < count {
			count = remaining
		}
		// Pointer zero marks a sparse block: file bytes exist but were
		// never written, so they read back as zeroes.
		if block == 0 {
			return append(data, make([]byte, count)...)
		}
		chunk := prodosBlock(img, block)
		if chunk == nil {
			return data
		}
		return append(data, chunk[:count]...)
	}

	switch fd.GetStorageType() {

	case StorageType_Seedling:
		data := prodosBlock(img, fd.KeyPointer())
		if data == nil {
			return nil
		}
		count := eof
		if count > len(data) {
			count = len(data)
		}
		out := make([]byte, count)
		copy(out, data[:count])
		return out

	case StorageType_Sapling:
		index := prodosBlock(img, fd.KeyPointer())
		if index == nil {
			return nil
		}
		data := make([]byte, 0, eof)
		for bptr := 0; bptr < 256 && len(data) < eof && bptr < total; bptr++ {
			block := int(index[bptr]) + 256*int(index[bptr+256])
			data = appendBlock(data, block)
		}
		return data

	case StorageType_Tree:
		master := prodosBlock(img, fd.KeyPointer())
		if master == nil {
			return nil
		}
		data := make([]byte, 0, eof)
		steps := 0
		for mptr := 0; mptr < 128 && len(data) < eof; mptr++ {
			iblock := int(master[mptr]) + 256*int(master[mptr+256])
			if iblock == 0 {
				// sparse index block: 256 blocks worth of zeroes
				for i := 0; i < 256 && len(data) < eof; i++ {
					data = appendBlock(data, 0)
				}
				continue
			}
			index := prodosBlock(img, iblock)
			if index == nil {
				break
			}
			for bptr := 0; bptr < 256 && len(data) < eof; bptr++ {
				steps++
				if steps > total {
					return data
				}
				data = appendBlock(data, int(index[bptr])+256*int(index[bptr+256]))
			}
		}
		return data
	}

	return nil
}
