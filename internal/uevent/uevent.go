// Package uevent reads kernel hot-plug notifications off a
// NETLINK_KOBJECT_UEVENT socket and recognizes DRM connector events.
package uevent

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"
)

// Socket is a datagram netlink socket bound to the kernel object-uevent
// multicast group, filtered to DRM hot-plug notifications.
type Socket struct {
	fd int
}

// Open creates and binds the socket. Binding failure, as well as socket
// creation failure, is returned verbatim; absence of this socket is
// non-fatal to the caller (hot-plug detection is simply disabled), a
// decision made at the orchestrator layer, not here.
func Open() (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_NETLINK, NETLINK_KOBJECT_UEVENT): %w", err)
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: 0, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind netlink uevent socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set netlink uevent socket non-blocking: %w", err)
	}
	return &Socket{fd: fd}, nil
}

// Fd returns the raw descriptor, for poll(2) integration.
func (s *Socket) Fd() int { return s.fd }

// Close releases the socket.
func (s *Socket) Close() error { return unix.Close(s.fd) }

// isDRMHotplug reports whether a raw uevent datagram's NUL-separated
// key=value tokens qualify as a DRM hot-plug notification: it must carry
// SUBSYSTEM=drm and HOTPLUG=1, and either DEVTYPE=connector or a DEVNAME
// beginning with "card".
func isDRMHotplug(msg []byte) bool {
	var subsystemDRM, hotplug1, devtypeConnector, devnameCard bool
	for _, tok := range bytes.Split(msg, []byte{0}) {
		switch {
		case bytes.Equal(tok, []byte("SUBSYSTEM=drm")):
			subsystemDRM = true
		case bytes.Equal(tok, []byte("HOTPLUG=1")):
			hotplug1 = true
		case bytes.Equal(tok, []byte("DEVTYPE=connector")):
			devtypeConnector = true
		case bytes.HasPrefix(tok, []byte("DEVNAME=card")):
			devnameCard = true
		}
	}
	return subsystemDRM && hotplug1 && (devtypeConnector || devnameCard)
}

// Drain performs a non-blocking receive loop until EAGAIN, reporting
// whether at least one qualifying DRM hot-plug datagram was seen. Any
// error other than EAGAIN aborts the drain and is returned.
func (s *Socket) Drain() (bool, error) {
	buf := make([]byte, 8192)
	sawHotplug := false
	for {
		n, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return sawHotplug, nil
			}
			return sawHotplug, fmt.Errorf("recvfrom netlink uevent socket: %w", err)
		}
		if isDRMHotplug(buf[:n]) {
			sawHotplug = true
		}
	}
}
