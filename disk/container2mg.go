package disk

/*
	2MG container format: a 64 byte preamble wrapped around a raw
	sector image, carrying the creator, data offset/length and the
	declared sector ordering of the payload.
*/

const PREAMBLE_2MG_SIZE = 0x40

const (
	Format2MGDOSOrder    = 0x00
	Format2MGProDOSOrder = 0x01
	Format2MGNibblized   = 0x02
)

type Header2MG struct {
	Data [64]byte
}

func (h *Header2MG) SetData(data []byte) {
	for i, v := range data {
		if i < 64 {
			h.Data[i] = v
		}
	}
}

func (h *Header2MG) GetID() string {
	return string(h.Data[0x00:0x04])
}

func (h *Header2MG) GetCreatorID() string {
	return string(h.Data[0x04:0x08])
}

func (h *Header2MG) GetHeaderSize() int {
	return int(h.Data[0x08]) + 256*int(h.Data[0x09])
}

func (h *Header2MG) GetVersion() int {
	return int(h.Data[0x0A]) + 256*int(h.Data[0x0B])
}

func (h *Header2MG) GetImageFormat() int {
	return int(h.Data[0x0C]) + 256*int(h.Data[0x0D]) + 65536*int(h.Data[0x0E]) + 16777216*int(h.Data[0x0F])
}

func (h *Header2MG) GetProDOSBlocks() int {
	return int(h.Data[0x14]) + 256*int(h.Data[0x15]) + 65536*int(h.Data[0x16]) + 16777216*int(h.Data[0x17])
}

func (h *Header2MG) GetDiskDataStart() int {
	return int(h.Data[0x18]) + 256*int(h.Data[0x19]) + 65536*int(h.Data[0x1A]) + 16777216*int(h.Data[0x1B])
}

func (h *Header2MG) GetDiskDataLength() int {
	return int(h.Data[0x1C]) + 256*int(h.Data[0x1D]) + 65536*int(h.Data[0x1E]) + 16777216*int(h.Data[0x1F])
}

// Unwrap2MG strips a 2MG preamble and returns the raw sector payload.
// Nibblized payloads are rejected; downstream probes only understand
// plain sector images.
func Unwrap2MG(data []byte) ([]byte, bool) {

	if len(data) < PREAMBLE_2MG_SIZE {
		return data, false
	}

	h := &Header2MG{}
	h.SetData(data[:PREAMBLE_2MG_SIZE])

	if h.GetID() != "2IMG" {
		return data, false
	}

	if h.GetImageFormat() == Format2MGNibblized {
		return data, false
	}

	start := h.GetDiskDataStart()
	size := h.GetDiskDataLength()

	if start == 0 {
		start = PREAMBLE_2MG_SIZE
	}
	if size == 0 && h.GetProDOSBlocks() > 0 {
		size = h.GetProDOSBlocks() * PRODOS_BLOCK_SIZE
	}

	if start < PREAMBLE_2MG_SIZE || size <= 0 || start+size > len(data) {
		return data, false
	}

	return data[start : start+size], true
}
