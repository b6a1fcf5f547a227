package disk

import (
	"testing"
)

// buildTRDOSImage assembles a 640K Beta Disk image labelled GAMES with
// one CODE file SCREEN: 6912 bytes in 27 sectors starting at track 1
// sector 0.
func buildTRDOSImage() []byte {

	data := make([]byte, TRDOS_640KB_DISK_BYTES)

	info := data[TRDOS_INFO_SECTOR*256:]
	info[TRDOS_SIGNATURE_OFFSET] = TRDOS_SIGNATURE
	info[TRDOS_DISKTYPE_OFFSET] = 0x16
	info[TRDOS_FILECOUNT_OFFSET] = 1
	copy(info[TRDOS_LABEL_OFFSET:], "GAMES   ")

	e := data[0:]
	copy(e[0:8], "SCREEN  ")
	e[8] = 'C'
	e[9] = 0x00 // start address 16384
	e[10] = 0x40
	e[11] = 0x00 // length 6912
	e[12] = 0x1B
	e[13] = 27 // sectors
	e[14] = 0  // start sector
	e[15] = 1  // start track

	for i := 0; i < 6912; i++ {
		data[1*TRDOS_SECTORS_PER_TRACK*256+i] = byte(i)
	}

	return data
}

func TestTRDOSCanRead(t *testing.T) {
	if !(trdosReader{}).CanRead(NewImage(buildTRDOSImage(), "test.trd")) {
		t.Fatal("expected CanRead true")
	}

	bad := buildTRDOSImage()
	bad[TRDOS_INFO_SECTOR*256+TRDOS_SIGNATURE_OFFSET] = 0x00
	if (trdosReader{}).CanRead(NewImage(bad, "bad.trd")) {
		t.Fatal("expected CanRead false without signature")
	}

	bad = buildTRDOSImage()
	bad[TRDOS_INFO_SECTOR*256+TRDOS_DISKTYPE_OFFSET] = 0x42
	if (trdosReader{}).CanRead(NewImage(bad, "bad.trd")) {
		t.Fatal("expected CanRead false for unknown disk type")
	}

	if (trdosReader{}).CanRead(NewImage(make([]byte, 100*1024), "small.trd")) {
		t.Fatal("expected CanRead false below the size range")
	}
}

func TestTRDOSCatalog(t *testing.T) {

	cat, err := trdosReader{}.ReadCatalog(NewImage(buildTRDOSImage(), "test.trd"))
	if err != nil {
		t.Fatal(err)
	}

	if cat.DiskName != "GAMES" {
		t.Errorf("label = %q", cat.DiskName)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}

	e := cat.Entries[0]
	if e.Name != "screen" {
		t.Errorf("name = %q", e.Name)
	}
	if e.FileTypeLabel != "CODE" {
		t.Errorf("type = %q", e.FileTypeLabel)
	}
	if e.Size != 6912 || len(e.RawData) != 6912 {
		t.Errorf("size = %d raw = %d", e.Size, len(e.RawData))
	}
	if e.LoadAddress != 16384 {
		t.Errorf("load = %d", e.LoadAddress)
	}
	if !e.IsImage || e.ImageTypeHint != "zx-screen" {
		t.Errorf("image = %v hint = %q", e.IsImage, e.ImageTypeHint)
	}
	if e.RawData[1000] != 1000%256 {
		t.Errorf("content mismatch")
	}
}

func TestTRDOSDeletedAndEndMarker(t *testing.T) {

	data := buildTRDOSImage()

	// slot 1 deleted, slot 2 ends the catalog, slot 3 is a ghost
	del := data[TRDOS_ENTRY_SIZE:]
	del[0] = 0x01
	copy(del[1:8], "GONE   ")
	del[8] = 'C'

	ghost := data[3*TRDOS_ENTRY_SIZE:]
	copy(ghost[0:8], "GHOST   ")
	ghost[8] = 'B'
	ghost[13] = 1
	ghost[15] = 2

	cat, err := trdosReader{}.ReadCatalog(NewImage(data, "test.trd"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected scan to stop at the end marker, got %d entries", len(cat.Entries))
	}
}

func TestTRDOSRunClippedToImage(t *testing.T) {

	data := buildTRDOSImage()
	e := data[0:]
	e[15] = 159 // run starts on the final track
	e[13] = 32  // and claims more sectors than remain

	cat, err := trdosReader{}.ReadCatalog(NewImage(data, "test.trd"))
	if err != nil {
		t.Fatal(err)
	}
	raw := cat.Entries[0].RawData
	// 16 sectors remain from track 159; the declared 6912 no longer fits
	if len(raw) != 16*256 {
		t.Errorf("raw = %d", len(raw))
	}
}
