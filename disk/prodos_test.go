package disk

import (
	"bytes"
	"testing"
)

// buildProDOSImage assembles a minimal 140K ProDOS volume: a volume
// directory at block 2 named TESTVOL holding one seedling file PICT of
// 512 bytes at block 100, plus whatever extra entries the callers poke
// in afterwards.
func buildProDOSImage() []byte {

	data := make([]byte, STD_DISK_BYTES)

	block2 := 2 * PRODOS_BLOCK_SIZE

	// volume directory header
	vdh := data[block2+4:]
	vdh[0] = 0xF0 | 7 // storage type F, name length 7
	copy(vdh[1:], "TESTVOL")
	vdh[31] = PRODOS_ENTRY_SIZE
	vdh[32] = 13 // entries per block
	vdh[33] = 1  // file count
	vdh[37] = byte(PRODOS_BLOCKS_PER_DISK & 0xFF)
	vdh[38] = byte(PRODOS_BLOCKS_PER_DISK >> 8)

	// first file entry
	fe := data[block2+4+PRODOS_ENTRY_SIZE:]
	fe[0] = 0x10 | 4 // seedling, name length 4
	copy(fe[1:], "PICT")
	fe[16] = 0x06 // BIN
	fe[17] = 100  // key block
	fe[19] = 1    // blocks used
	fe[21] = 0x00 // eof = 512
	fe[22] = 0x02
	fe[31] = 0x00 // aux 0x2000
	fe[32] = 0x20

	// seedling content
	for i := 0; i < PRODOS_BLOCK_SIZE; i++ {
		data[100*PRODOS_BLOCK_SIZE+i] = byte(i)
	}

	return data
}

func TestProDOSCanRead(t *testing.T) {
	img := NewImage(buildProDOSImage(), "test.po")
	if !(prodosReader{}).CanRead(img) {
		t.Fatal("expected CanRead true for valid volume")
	}

	junk := NewImage(make([]byte, STD_DISK_BYTES), "junk.po")
	if (prodosReader{}).CanRead(junk) {
		t.Fatal("expected CanRead false for zeroed image")
	}

	if (prodosReader{}).CanRead(NewImage(make([]byte, 1024), "tiny.po")) {
		t.Fatal("expected CanRead false below three blocks")
	}
}

func TestProDOSSeedling(t *testing.T) {

	cat, err := prodosReader{}.ReadCatalog(NewImage(buildProDOSImage(), "test.po"))
	if err != nil {
		t.Fatal(err)
	}

	if cat.DiskName != "TESTVOL" {
		t.Errorf("volume name = %q", cat.DiskName)
	}
	if len(cat.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cat.Entries))
	}

	e := cat.Entries[0]
	if e.Name != "pict" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Size != 512 || len(e.RawData) != 512 {
		t.Errorf("size = %d, raw = %d", e.Size, len(e.RawData))
	}
	if e.LoadAddress != 0x2000 {
		t.Errorf("load address = %x", e.LoadAddress)
	}
	if e.RawData[255] != 255 {
		t.Errorf("content mismatch")
	}
}

func TestProDOSSapling(t *testing.T) {

	data := buildProDOSImage()
	block2 := 2 * PRODOS_BLOCK_SIZE

	// second entry: sapling, eof 700, index block 101 -> blocks 102, 103
	data[block2+4+33] = 2 // file count now 2
	fe := data[block2+4+2*PRODOS_ENTRY_SIZE:]
	fe[0] = 0x20 | 3 // sapling, name length 3
	copy(fe[1:], "SAP")
	fe[16] = 0x06
	fe[17] = 101
	fe[19] = 3
	fe[21] = byte(700 & 0xFF)
	fe[22] = byte(700 >> 8)

	data[101*PRODOS_BLOCK_SIZE+0] = 102 // pointer low bytes
	data[101*PRODOS_BLOCK_SIZE+1] = 103
	for i := 0; i < PRODOS_BLOCK_SIZE; i++ {
		data[102*PRODOS_BLOCK_SIZE+i] = 0xAA
		data[103*PRODOS_BLOCK_SIZE+i] = 0xBB
	}

	cat, err := prodosReader{}.ReadCatalog(NewImage(data, "test.po"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat.Entries))
	}

	e := cat.Entries[1]
	if e.Name != "sap" {
		t.Errorf("name = %q", e.Name)
	}
	if len(e.RawData) != 700 {
		t.Fatalf("expected exactly 700 bytes, got %d", len(e.RawData))
	}
	if e.RawData[0] != 0xAA || e.RawData[511] != 0xAA || e.RawData[512] != 0xBB || e.RawData[699] != 0xBB {
		t.Errorf("sapling content mismatch")
	}
}

func TestProDOSSubdirectory(t *testing.T) {

	data := buildProDOSImage()
	block2 := 2 * PRODOS_BLOCK_SIZE

	data[block2+4+33] = 2
	fe := data[block2+4+2*PRODOS_ENTRY_SIZE:]
	fe[0] = 0xD0 | 4 // subdirectory entry
	copy(fe[1:], "PICS")
	fe[16] = 0x0F
	fe[17] = 110 // key block of subdirectory

	// subdirectory: header plus one seedling
	sb := 110 * PRODOS_BLOCK_SIZE
	sh := data[sb+4:]
	sh[0] = 0xE0 | 4
	copy(sh[1:], "PICS")
	sh[31] = PRODOS_ENTRY_SIZE
	sh[32] = 13
	sh[33] = 1

	se := data[sb+4+PRODOS_ENTRY_SIZE:]
	se[0] = 0x10 | 5
	copy(se[1:], "INNER")
	se[16] = 0x06
	se[17] = 111
	se[21] = 16 // eof 16
	for i := 0; i < 16; i++ {
		data[111*PRODOS_BLOCK_SIZE+i] = byte(0x40 + i)
	}

	cat, err := prodosReader{}.ReadCatalog(NewImage(data, "test.po"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat.Entries))
	}

	dir := cat.Entries[1]
	if !dir.IsDirectory || dir.Name != "pics" {
		t.Fatalf("expected directory pics, got %+v", dir)
	}
	if len(dir.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(dir.Children))
	}
	if dir.Children[0].Name != "inner" || len(dir.Children[0].RawData) != 16 {
		t.Errorf("child = %+v", dir.Children[0])
	}
}

func TestProDOSCyclicDirectory(t *testing.T) {

	data := buildProDOSImage()
	block2 := 2 * PRODOS_BLOCK_SIZE

	// subdirectory pointing back at the volume directory
	data[block2+4+33] = 2
	fe := data[block2+4+2*PRODOS_ENTRY_SIZE:]
	fe[0] = 0xD0 | 4
	copy(fe[1:], "LOOP")
	fe[16] = 0x0F
	fe[17] = 2 // key block = volume directory itself

	cat, err := prodosReader{}.ReadCatalog(NewImage(data, "test.po"))
	if err != nil {
		t.Fatal(err)
	}
	// must terminate; the looping directory just comes back empty
	if len(cat.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat.Entries))
	}
}

func TestProDOSSparseSapling(t *testing.T) {

	data := buildProDOSImage()
	block2 := 2 * PRODOS_BLOCK_SIZE

	data[block2+4+33] = 2
	fe := data[block2+4+2*PRODOS_ENTRY_SIZE:]
	fe[0] = 0x20 | 2
	copy(fe[1:], "SP")
	fe[16] = 0x06
	fe[17] = 101
	fe[21] = byte(600 & 0xFF)
	fe[22] = byte(600 >> 8)

	// first pointer zero (sparse), second real
	data[101*PRODOS_BLOCK_SIZE+0] = 0
	data[101*PRODOS_BLOCK_SIZE+1] = 103
	for i := 0; i < PRODOS_BLOCK_SIZE; i++ {
		data[103*PRODOS_BLOCK_SIZE+i] = 0xCC
	}

	cat, err := prodosReader{}.ReadCatalog(NewImage(data, "test.po"))
	if err != nil {
		t.Fatal(err)
	}
	raw := cat.Entries[1].RawData
	if len(raw) != 600 {
		t.Fatalf("expected 600 bytes, got %d", len(raw))
	}
	if !bytes.Equal(raw[:512], make([]byte, 512)) {
		t.Errorf("sparse block should read as zeroes")
	}
	if raw[512] != 0xCC {
		t.Errorf("second block content mismatch")
	}
}
