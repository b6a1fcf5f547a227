package disk

// DiskGeometry describes the physical shape of an image. It is derived
// from the image size alone; none of the readers trust it further than
// a bounds check against the raw buffer.
type DiskGeometry struct {
	BytesPerSector  int
	SectorsPerTrack int
	Tracks          int
	Sides           int
	TotalSectors    int
}

func (g DiskGeometry) TotalBytes() int {
	return g.TotalSectors * g.BytesPerSector
}

// Known standard image sizes. First match wins, so the Apple sizes sit
// ahead of the generic entries of the same byte count.
var stdGeometries = []struct {
	size int
	geo  DiskGeometry
}{
	{STD_DISK_BYTES, DiskGeometry{256, 16, 35, 1, 560}},         // Apple 140K
	{STD_DISK_BYTES_OLD, DiskGeometry{256, 13, 35, 1, 455}},     // Apple 13-sector
	{PRODOS_800KB_DISK_BYTES, DiskGeometry{512, 20, 80, 1, 1600}},
	{PRODOS_400KB_DISK_BYTES, DiskGeometry{512, 10, 80, 1, 800}},
	{DFS_100KB_DISK_BYTES, DiskGeometry{256, 10, 40, 1, 400}},
	{DFS_200KB_DISK_BYTES, DiskGeometry{256, 10, 80, 1, 800}},
	{DFS_400KB_DISK_BYTES, DiskGeometry{256, 10, 80, 2, 1600}},
	{RSDOS_160KB_DISK_BYTES, DiskGeometry{256, 18, 35, 1, 630}},
	{RSDOS_180KB_DISK_BYTES, DiskGeometry{256, 18, 40, 1, 720}},
	{FAT12_360KB_DISK_BYTES, DiskGeometry{512, 9, 40, 2, 720}},
	{FAT12_720KB_DISK_BYTES, DiskGeometry{512, 9, 80, 2, 1440}},
	{TRDOS_640KB_DISK_BYTES, DiskGeometry{256, 16, 80, 2, 2560}},
	{TRDOS_320KB_DISK_BYTES, DiskGeometry{256, 16, 80, 1, 1280}},
	{TRDOS_160KB_DISK_BYTES, DiskGeometry{256, 16, 40, 1, 640}},
}

// GeometryForSize maps an image size to a geometry. Non-standard sizes
// fall back to a flat 256-byte-sector layout so that TotalBytes never
// exceeds the image length.
func GeometryForSize(size int) DiskGeometry {
	for _, sg := range stdGeometries {
		if sg.size == size {
			return sg.geo
		}
	}
	g := DiskGeometry{
		BytesPerSector:  256,
		SectorsPerTrack: 16,
		Sides:           1,
	}
	g.TotalSectors = size / g.BytesPerSector
	g.Tracks = g.TotalSectors / g.SectorsPerTrack
	return g
}
