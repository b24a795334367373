package card

import (
	"encoding/binary"
	"fmt"
)

// Event kinds from drm_mode.h.
const (
	eventVblank       = 0x01
	eventFlipComplete = 0x02
)

// drm_event header is 8 bytes: { u32 type; u32 length; }.
// drm_event_vblank appends { u64 user_data; u32 tv_sec; u32 tv_usec;
// u32 sequence; u32 crtc_id; } — the crtc_id field only appears in the
// "version 2" 32-byte variant modern kernels emit.
const (
	eventHeaderSize       = 8
	eventVblankBodyV1Size = 20 // user_data + tv_sec + tv_usec + sequence
	eventVblankBodyV2Size = 24 // v1 + crtc_id
)

// PageFlipEvent reports that a previously committed framebuffer on a CRTC
// is now the one being scanned out.
type PageFlipEvent struct {
	CrtcID uint32
}

// ReadEvents drains and decodes pending DRM events from the card's
// descriptor. Call this only after a poll/select indicates the
// descriptor is read-ready — the underlying read(2) otherwise blocks.
func (c *Card) ReadEvents() ([]PageFlipEvent, error) {
	buf := make([]byte, 4096)
	n, err := c.f.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read DRM events: %w", err)
	}
	buf = buf[:n]

	var flips []PageFlipEvent
	off := 0
	for off+eventHeaderSize <= len(buf) {
		typ := binary.LittleEndian.Uint32(buf[off : off+4])
		length := binary.LittleEndian.Uint32(buf[off+4 : off+8])
		if length < eventHeaderSize || off+int(length) > len(buf) {
			break
		}
		body := buf[off+eventHeaderSize : off+int(length)]
		if typ == eventFlipComplete && len(body) >= eventVblankBodyV2Size {
			crtcID := binary.LittleEndian.Uint32(body[20:24])
			flips = append(flips, PageFlipEvent{CrtcID: crtcID})
		}
		off += int(length)
	}
	return flips, nil
}
