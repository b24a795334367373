package uevent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokens(parts ...string) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.WriteString(p)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func TestIsDRMHotplugQualifyingByDevtype(t *testing.T) {
	msg := tokens("change@/devices/pci0000:00/card0",
		"SUBSYSTEM=drm", "HOTPLUG=1", "DEVTYPE=connector")
	assert.True(t, isDRMHotplug(msg))
}

func TestIsDRMHotplugQualifyingByDevname(t *testing.T) {
	msg := tokens("SUBSYSTEM=drm", "HOTPLUG=1", "DEVNAME=card0")
	assert.True(t, isDRMHotplug(msg))
}

func TestIsDRMHotplugMissingToken(t *testing.T) {
	cases := [][]byte{
		tokens("HOTPLUG=1", "DEVTYPE=connector"),
		tokens("SUBSYSTEM=drm", "DEVTYPE=connector"),
		tokens("SUBSYSTEM=drm", "HOTPLUG=1"),
		tokens("SUBSYSTEM=usb", "HOTPLUG=1", "DEVTYPE=connector"),
		tokens("SUBSYSTEM=drm", "HOTPLUG=0", "DEVTYPE=connector"),
	}
	for _, msg := range cases {
		assert.False(t, isDRMHotplug(msg))
	}
}

func TestIsDRMHotplugEmptyMessage(t *testing.T) {
	assert.False(t, isDRMHotplug(nil))
}
