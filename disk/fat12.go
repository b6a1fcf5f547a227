package disk

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

/*
	MSX-DOS FAT12. Standard 360K/720K layouts only: 512 byte sectors,
	a BIOS parameter block in the boot sector, packed 12 bit FAT
	entries and a flat data area after the root directory.
*/

const FAT12_ENTRY_SIZE = 32
const FAT12_CHAIN_END = 0xFF8
const FAT12_FIRST_DATA_CLUSTER = 2

const (
	fat12AttrReadOnly  = 0x01
	fat12AttrHidden    = 0x02
	fat12AttrSystem    = 0x04
	fat12AttrVolume    = 0x08
	fat12AttrDirectory = 0x10
)

// FAT12BPB is the parsed BIOS parameter block.
type FAT12BPB struct {
	BytesPerSector    int
	SectorsPerCluster int
	ReservedSectors   int
	NumFATs           int
	RootEntries       int
	TotalSectors      int
	MediaDescriptor   byte
	SectorsPerFAT     int
}

func fat12ParseBPB(boot []byte) FAT12BPB {
	return FAT12BPB{
		BytesPerSector:    int(boot[11]) + 256*int(boot[12]),
		SectorsPerCluster: int(boot[13]),
		ReservedSectors:   int(boot[14]) + 256*int(boot[15]),
		NumFATs:           int(boot[16]),
		RootEntries:       int(boot[17]) + 256*int(boot[18]),
		TotalSectors:      int(boot[19]) + 256*int(boot[20]),
		MediaDescriptor:   boot[21],
		SectorsPerFAT:     int(boot[22]) + 256*int(boot[23]),
	}
}

func (b FAT12BPB) fatOffset() int {
	return b.ReservedSectors * b.BytesPerSector
}

func (b FAT12BPB) rootDirOffset() int {
	return (b.ReservedSectors + b.NumFATs*b.SectorsPerFAT) * b.BytesPerSector
}

func (b FAT12BPB) dataOffset() int {
	return b.rootDirOffset() + b.RootEntries*FAT12_ENTRY_SIZE
}

func (b FAT12BPB) clusterBytes() int {
	return b.SectorsPerCluster * b.BytesPerSector
}

func (b FAT12BPB) totalClusters() int {
	if b.clusterBytes() == 0 {
		return 0
	}
	return (b.TotalSectors*b.BytesPerSector - b.dataOffset()) / b.clusterBytes()
}

func (b FAT12BPB) inRange() bool {
	return b.BytesPerSector == 512 &&
		b.SectorsPerCluster >= 1 && b.SectorsPerCluster <= 8 &&
		b.NumFATs >= 1 && b.NumFATs <= 2 &&
		b.RootEntries >= 1 && b.RootEntries <= 512 &&
		b.SectorsPerFAT >= 1 &&
		b.MediaDescriptor >= 0xF8
}

// FAT12FileDescriptor wraps one 32 byte directory record.
type FAT12FileDescriptor struct {
	Data []byte
}

func (fd *FAT12FileDescriptor) IsEnd() bool {
	return fd.Data[0] == 0x00
}

func (fd *FAT12FileDescriptor) IsDeleted() bool {
	return fd.Data[0] == 0xE5
}

func (fd *FAT12FileDescriptor) Attr() byte {
	return fd.Data[11]
}

func (fd *FAT12FileDescriptor) IsDirectory() bool {
	return fd.Attr()&fat12AttrDirectory != 0
}

func (fd *FAT12FileDescriptor) IsVolumeLabel() bool {
	return fd.Attr()&fat12AttrVolume != 0
}

func (fd *FAT12FileDescriptor) rawName() []byte {
	name := make([]byte, 11)
	copy(name, fd.Data[0:11])
	if name[0] == 0x05 {
		name[0] = 0xE5
	}
	return name
}

// Name decodes the 8.3 name from code page 437.
func (fd *FAT12FileDescriptor) Name() string {
	raw := fd.rawName()
	base := fat12DecodeName(raw[0:8])
	ext := fat12DecodeName(raw[8:11])
	if ext != "" {
		base += "." + ext
	}
	return strings.ToLower(base)
}

func (fd *FAT12FileDescriptor) Ext() string {
	return fat12DecodeName(fd.rawName()[8:11])
}

func fat12DecodeName(b []byte) string {
	s := ""
	for _, v := range b {
		s += string(charmap.CodePage437.DecodeByte(v))
	}
	return strings.TrimRight(s, " \x00")
}

func (fd *FAT12FileDescriptor) FirstCluster() int {
	return int(fd.Data[26]) + 256*int(fd.Data[27])
}

func (fd *FAT12FileDescriptor) Size() int {
	return int(fd.Data[28]) + 256*int(fd.Data[29]) + 65536*int(fd.Data[30]) + 16777216*int(fd.Data[31])
}

type fat12Reader struct{}

func (fat12Reader) Label() string { return "MSX FAT12" }

// CanRead wants exactly a 360K or 720K image, a BPB with every field in
// range, and a FAT whose first three bytes echo the media descriptor.
func (fat12Reader) CanRead(img *Image) bool {
	if len(img.Data) != FAT12_360KB_DISK_BYTES && len(img.Data) != FAT12_720KB_DISK_BYTES {
		return false
	}

	boot := img.Read(0, 512)
	if boot == nil {
		return false
	}

	bpb := fat12ParseBPB(boot)
	if !bpb.inRange() {
		return false
	}

	fat := img.Read(bpb.fatOffset(), 3)
	if fat == nil {
		return false
	}
	return fat[0] == bpb.MediaDescriptor && fat[1] == 0xFF && fat[2] == 0xFF
}

func (r fat12Reader) ReadCatalog(img *Image) (*DiskCatalog, error) {

	boot := img.Read(0, 512)
	if boot == nil {
		return nil, errors.New("no boot sector")
	}
	bpb := fat12ParseBPB(boot)
	if !bpb.inRange() {
		return nil, errors.New("bpb out of range")
	}

	fat := img.Read(bpb.fatOffset(), bpb.SectorsPerFAT*bpb.BytesPerSector)
	if fat == nil {
		return nil, errors.New("fat truncated")
	}

	cat := &DiskCatalog{
		DiskFormatLabel: r.Label(),
		DiskSizeBytes:   len(img.Data),
	}

	// Directory recursion by worklist; visited-cluster and depth caps
	// keep a crafted cyclic tree from recursing forever.
	type dirJob struct {
		region []byte
		depth  int
		attach *[]CatalogEntry
	}

	const maxDirDepth = 16
	visited := map[int]bool{}

	root := img.Read(bpb.rootDirOffset(), bpb.RootEntries*FAT12_ENTRY_SIZE)
	if root == nil {
		return nil, errors.New("root directory truncated")
	}

	jobs := []dirJob{{region: root, depth: 0, attach: &cat.Entries}}

	for len(jobs) > 0 {
		job := jobs[0]
		jobs = jobs[1:]

		var entries []CatalogEntry
		type subDir struct {
			entryIdx int
			region   []byte
		}
		var subs []subDir

		for off := 0; off+FAT12_ENTRY_SIZE <= len(job.region); off += FAT12_ENTRY_SIZE {
			fd := FAT12FileDescriptor{Data: job.region[off : off+FAT12_ENTRY_SIZE]}

			if fd.IsEnd() {
				break
			}
			if fd.IsDeleted() {
				continue
			}
			if fd.IsVolumeLabel() {
				if cat.DiskName == "" && !fd.IsDirectory() {
					cat.DiskName = fat12DecodeName(fd.rawName())
				}
				continue
			}

			name := fd.Name()
			if name == "." || name == ".." || name == "" {
				continue
			}

			if fd.IsDirectory() {
				entries = append(entries, CatalogEntry{
					Name:          name,
					FileTypeLabel: "DIR",
					IsDirectory:   true,
				})
				cl := fd.FirstCluster()
				if job.depth < maxDirDepth && cl >= FAT12_FIRST_DATA_CLUSTER && !visited[cl] {
					visited[cl] = true
					subs = append(subs, subDir{
						entryIdx: len(entries) - 1,
						region:   fat12ExtractChain(img, bpb, fat, cl, -1),
					})
				}
				continue
			}

			raw := fat12ExtractChain(img, bpb, fat, fd.FirstCluster(), fd.Size())
			isImg, hint := classifyImage("msx", fd.Ext(), fd.Size())

			entries = append(entries, CatalogEntry{
				Name:          name,
				FileTypeLabel: strings.ToUpper(fd.Ext()),
				Size:          fd.Size(),
				BlocksUsed:    (fd.Size() + bpb.clusterBytes() - 1) / bpb.clusterBytes(),
				Length:        fd.Size(),
				RawData:       raw,
				IsImage:       isImg,
				ImageTypeHint: hint,
			})
		}

		*job.attach = entries
		for _, sub := range subs {
			jobs = append(jobs, dirJob{
				region: sub.region,
				depth:  job.depth + 1,
				attach: &(*job.attach)[sub.entryIdx].Children,
			})
		}
	}

	return cat, nil
}

func fat12Entry(fat []byte, cluster int) int {
	off := cluster + cluster/2
	if off+1 >= len(fat) {
		return FAT12_CHAIN_END
	}
	if cluster%2 == 0 {
		return int(fat[off]) | (int(fat[off+1]&0x0F) << 8)
	}
	return int(fat[off]>>4) | (int(fat[off+1]) << 4)
}

// fat12ExtractChain walks a cluster chain and trims to size. size < 0
// means "until chain end" (directories carry no size). The step cap is
// the cluster count of the volume.
func fat12ExtractChain(img *Image, bpb FAT12BPB, fat []byte, cluster, size int) []byte {

	var out []byte
	cb := bpb.clusterBytes()
	total := bpb.totalClusters()

	for steps := 0; steps <= total; steps++ {
		if cluster < FAT12_FIRST_DATA_CLUSTER || cluster >= FAT12_FIRST_DATA_CLUSTER+total {
			break
		}
		if size >= 0 && len(out) >= size {
			break
		}

		offset := bpb.dataOffset() + (cluster-FAT12_FIRST_DATA_CLUSTER)*cb
		chunk := img.Read(offset, cb)
		if chunk == nil {
			break
		}
		out = append(out, chunk...)

		next := fat12Entry(fat, cluster)
		if next >= FAT12_CHAIN_END {
			break
		}
		cluster = next
	}

	if size >= 0 && len(out) > size {
		out = out[:size]
	}
	return out
}
