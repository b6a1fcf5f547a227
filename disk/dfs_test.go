package disk

import (
	"testing"
)

// buildDFSImage assembles a 200K DFS disk whose catalog holds a single
// 20480 byte SCREEN file starting at sector 2.
func buildDFSImage() []byte {

	data := make([]byte, DFS_200KB_DISK_BYTES)

	copy(data[0:8], "DISKTITL")

	s1 := data[256:]
	s1[5] = 8    // one catalog entry
	s1[6] = 0x03 // total sectors = 800
	s1[7] = 0x20

	// name slot 0
	copy(data[8:15], "SCREEN ")
	data[15] = '$'

	// attributes slot 0: load 0x3000, length 20480, start sector 2
	attr := s1[8:]
	attr[1] = 0x30
	attr[5] = 0x50
	attr[7] = 2

	for i := 0; i < 20480; i++ {
		data[2*256+i] = byte(i)
	}

	return data
}

func TestDFSCanRead(t *testing.T) {
	if !(dfsReader{}).CanRead(NewImage(buildDFSImage(), "test.ssd")) {
		t.Fatal("expected CanRead true")
	}

	// entry byte neither small enough nor a multiple of eight
	bad := buildDFSImage()
	bad[256+5] = 249
	if (dfsReader{}).CanRead(NewImage(bad, "test.ssd")) {
		t.Fatal("expected CanRead false for bad entry byte")
	}

	// garbage title
	bad = buildDFSImage()
	for i := 0; i < 8; i++ {
		bad[i] = 0x01
	}
	if (dfsReader{}).CanRead(NewImage(bad, "test.ssd")) {
		t.Fatal("expected CanRead false for unprintable title")
	}

	if (dfsReader{}).CanRead(NewImage(make([]byte, 12345), "odd.ssd")) {
		t.Fatal("expected CanRead false for off-class size")
	}
}

func TestDFSCatalog(t *testing.T) {

	cat, err := dfsReader{}.ReadCatalog(NewImage(buildDFSImage(), "test.ssd"))
	if err != nil {
		t.Fatal(err)
	}

	if cat.DiskName != "DISKTITL" {
		t.Errorf("title = %q", cat.DiskName)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}

	e := cat.Entries[0]
	if e.Name != "screen" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Size != 20480 || len(e.RawData) != 20480 {
		t.Errorf("size = %d raw = %d", e.Size, len(e.RawData))
	}
	if e.LoadAddress != 0x3000 {
		t.Errorf("load = %x", e.LoadAddress)
	}
	if !e.IsImage || e.ImageTypeHint != "bbc-mode012" {
		t.Errorf("image = %v hint = %q", e.IsImage, e.ImageTypeHint)
	}
	if e.RawData[100] != 100 {
		t.Errorf("content mismatch")
	}
}

func TestDFSCatalogStartSectorExcluded(t *testing.T) {

	// a start sector inside the catalog region cannot be a file
	data := buildDFSImage()
	data[256+8+7] = 1

	cat, err := dfsReader{}.ReadCatalog(NewImage(data, "test.ssd"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 0 {
		t.Fatalf("expected entry excluded, got %d", len(cat.Entries))
	}
}

func TestDFSStartSectorHighBitFallback(t *testing.T) {

	// scribbled high bits push the start sector past the disk; the low
	// byte alone still lands on a real sector
	data := buildDFSImage()
	attr := data[256+8:]
	attr[6] |= 0x03 // start now 2 + 768 with total 800: still in range
	attr[7] = 0x80  // 128 + 768 = 896, out of range; low byte 128 is fine

	for i := 0; i < 20480; i++ {
		data[128*256+i] = 0xEE
	}

	cat, err := dfsReader{}.ReadCatalog(NewImage(data, "test.ssd"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}
	if cat.Entries[0].RawData[0] != 0xEE {
		t.Errorf("fallback start sector not used")
	}
}
