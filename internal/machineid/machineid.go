// Package machineid computes the identifier used to scope audit log entries
// to the machine that wrote them.
//
// The identifier is the 48-bit hardware address of the first usable network
// interface, rendered as a decimal integer. When no hardware address is
// available a random 48-bit value with the multicast bit set is used instead,
// so it can never collide with a real interface address.
package machineid

import (
	"crypto/rand"
	"net"
	"strconv"
	"sync"
)

var (
	once sync.Once
	id   string
)

// Get returns the machine identifier. It is computed on the first call and
// stays the same for the lifetime of the process.
func Get() string {
	once.Do(func() {
		id = compute(net.Interfaces, rand.Read)
	})

	return id
}

// FromHardwareAddr renders a hardware address as a decimal integer string.
func FromHardwareAddr(addr net.HardwareAddr) string {
	var n uint64

	for _, b := range addr {
		n = n<<8 | uint64(b)
	}

	return strconv.FormatUint(n, 10)
}

func compute(interfaces func() ([]net.Interface, error), random func([]byte) (int, error)) string {
	if ifaces, err := interfaces(); err == nil {
		for _, iface := range ifaces {
			if usable(iface) {
				return FromHardwareAddr(iface.HardwareAddr)
			}
		}
	}

	node := make([]byte, 6)
	if _, err := random(node); err != nil {
		clear(node)
	}

	node[0] |= 0x01

	return FromHardwareAddr(node)
}

func usable(iface net.Interface) bool {
	if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
		return false
	}

	for _, b := range iface.HardwareAddr {
		if b != 0 {
			return true
		}
	}

	return false
}
