package disk

import (
	"testing"
)

const rsdosTestDiskBytes = 35 * 18 * 256

// buildRSDOSImage assembles a 35 track CoCo disk with one BIN file
// PICTURE.BIN in granule 0: FAT entry 0xC3, so three sectors of the
// granule are live and the last is trimmed to 128 bytes.
func buildRSDOSImage() []byte {

	data := make([]byte, rsdosTestDiskBytes)

	fat := data[(RSDOS_DIR_TRACK*18+RSDOS_FAT_SECTOR-1)*256:]
	fat[0] = 0xC3
	for i := 1; i < RSDOS_GRANULE_COUNT; i++ {
		fat[i] = 0xFF
	}

	dir := data[(RSDOS_DIR_TRACK*18+RSDOS_DIR_FIRST_SECTOR-1)*256:]
	copy(dir[0:8], "PICTURE ")
	copy(dir[8:11], "BIN")
	dir[11] = 2 // binary
	dir[13] = 0 // first granule
	dir[14] = 0 // last sector holds 128 bytes
	dir[15] = 128

	// directory ends at the next slot
	dir[RSDOS_ENTRY_SIZE] = 0xFF

	// granule 0 payload
	for i := 0; i < 3*256; i++ {
		data[i] = byte(i)
	}

	return data
}

func TestRSDOSCanRead(t *testing.T) {
	if !(rsdosReader{}).CanRead(NewImage(buildRSDOSImage(), "test.dsk")) {
		t.Fatal("expected CanRead true")
	}

	if (rsdosReader{}).CanRead(NewImage(make([]byte, 100*1024), "small.dsk")) {
		t.Fatal("expected CanRead false for undersized image")
	}

	// too many implausible granule map bytes
	bad := buildRSDOSImage()
	fat := bad[(RSDOS_DIR_TRACK*18+RSDOS_FAT_SECTOR-1)*256:]
	for i := 10; i < 18; i++ {
		fat[i] = 0xB0
	}
	if (rsdosReader{}).CanRead(NewImage(bad, "bad.dsk")) {
		t.Fatal("expected CanRead false below the plausibility floor")
	}

	// a full map needs a believable first directory entry
	bad = buildRSDOSImage()
	fat = bad[(RSDOS_DIR_TRACK*18+RSDOS_FAT_SECTOR-1)*256:]
	for i := 0; i < RSDOS_GRANULE_COUNT; i++ {
		fat[i] = 0xC1
	}
	dir := bad[(RSDOS_DIR_TRACK*18+RSDOS_DIR_FIRST_SECTOR-1)*256:]
	for i := 0; i < RSDOS_ENTRY_SIZE; i++ {
		dir[i] = 0
	}
	if (rsdosReader{}).CanRead(NewImage(bad, "full.dsk")) {
		t.Fatal("expected CanRead false for full map with empty directory")
	}
}

func TestRSDOSCatalog(t *testing.T) {

	cat, err := rsdosReader{}.ReadCatalog(NewImage(buildRSDOSImage(), "test.dsk"))
	if err != nil {
		t.Fatal(err)
	}

	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}

	e := cat.Entries[0]
	if e.Name != "picture.bin" {
		t.Errorf("name = %q", e.Name)
	}
	if e.FileTypeLabel != "BIN" {
		t.Errorf("type = %q", e.FileTypeLabel)
	}
	// two full sectors plus the trimmed last one
	if e.Size != 640 || len(e.RawData) != 640 {
		t.Errorf("size = %d raw = %d", e.Size, len(e.RawData))
	}
	if e.RawData[0] != 0 || e.RawData[300] != 300%256 {
		t.Errorf("content mismatch")
	}
}

func TestRSDOSDirectoryEndMarker(t *testing.T) {

	// a valid-looking entry after the 0xFF terminator must not surface
	data := buildRSDOSImage()
	dir := data[(RSDOS_DIR_TRACK*18+RSDOS_DIR_FIRST_SECTOR-1)*256:]
	ghost := dir[2*RSDOS_ENTRY_SIZE:]
	copy(ghost[0:8], "GHOST   ")
	copy(ghost[8:11], "BAS")
	ghost[13] = 1

	cat, err := rsdosReader{}.ReadCatalog(NewImage(data, "test.dsk"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected directory scan to stop at terminator, got %d entries", len(cat.Entries))
	}
}

func TestRSDOSGranuleChain(t *testing.T) {

	data := buildRSDOSImage()
	fat := data[(RSDOS_DIR_TRACK*18+RSDOS_FAT_SECTOR-1)*256:]
	dir := data[(RSDOS_DIR_TRACK*18+RSDOS_DIR_FIRST_SECTOR-1)*256:]

	// second file: granules 2 -> 3, all nine sectors of the last one
	fat[2] = 3
	fat[3] = 0xC9
	e := dir[RSDOS_ENTRY_SIZE:]
	copy(e[0:8], "DATA    ")
	copy(e[8:11], "DAT")
	e[11] = 1
	e[13] = 2
	dir[2*RSDOS_ENTRY_SIZE] = 0xFF

	for i := 0; i < RSDOS_GRANULE_BYTES; i++ {
		data[rsdosGranuleOffset(2)+i] = 0x11
		data[rsdosGranuleOffset(3)+i] = 0x22
	}

	cat, err := rsdosReader{}.ReadCatalog(NewImage(data, "test.dsk"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat.Entries))
	}

	raw := cat.Entries[1].RawData
	if len(raw) != 2*RSDOS_GRANULE_BYTES {
		t.Fatalf("chain length = %d", len(raw))
	}
	if raw[0] != 0x11 || raw[RSDOS_GRANULE_BYTES] != 0x22 {
		t.Errorf("chain content mismatch")
	}
}

func TestRSDOSSelfLoopTerminates(t *testing.T) {

	data := buildRSDOSImage()
	fat := data[(RSDOS_DIR_TRACK*18+RSDOS_FAT_SECTOR-1)*256:]
	fat[0] = 0 // granule 0 chains to itself

	cat, err := rsdosReader{}.ReadCatalog(NewImage(data, "test.dsk"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}
	if len(cat.Entries[0].RawData) > RSDOS_GRANULE_COUNT*RSDOS_GRANULE_BYTES {
		t.Errorf("looping chain not bounded: %d bytes", len(cat.Entries[0].RawData))
	}
}
