package uring

import (
	"fmt"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SockAddr is a kernel-ABI socket address tagged by family: either a
// sockaddr_in or a sockaddr_in6, built from a textual IP and port.
// Immutable once constructed. Bind and Connect submissions pin the
// registry-owned copy and embed a raw pointer/length view of it.
type SockAddr struct {
	family uint16
	v4     unix.RawSockaddrInet4
	v6     unix.RawSockaddrInet6
}

// V4 builds an IPv4 socket address from a dotted-quad string and a host
// byte order port. Fails with ErrInvalidAddress on anything that is not a
// plain IPv4 address.
func V4(ip string, port uint16) (*SockAddr, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidAddress, ip)
	}
	sa := &SockAddr{family: unix.AF_INET}
	sa.v4.Family = unix.AF_INET
	sa.v4.Addr = a.As4()
	putPortBE(&sa.v4.Port, port)
	return sa, nil
}

// V6 builds an IPv6 socket address. Fails with ErrInvalidAddress on
// anything that is not an IPv6 address.
func V6(ip string, port uint16) (*SockAddr, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is6() || a.Is4In6() {
		return nil, fmt.Errorf("%w: %q is not an IPv6 address", ErrInvalidAddress, ip)
	}
	sa := &SockAddr{family: unix.AF_INET6}
	sa.v6.Family = unix.AF_INET6
	sa.v6.Addr = a.As16()
	putPortBE(&sa.v6.Port, port)
	return sa, nil
}

// Family returns unix.AF_INET or unix.AF_INET6.
func (sa *SockAddr) Family() uint16 {
	return sa.family
}

// PointerAndLen returns the raw address and byte length of the kernel-ABI
// structure, for embedding into a bind/connect SQE. The receiver must be
// the pinned, registry-owned copy.
func (sa *SockAddr) PointerAndLen() (uint64, uint32) {
	if sa.family == unix.AF_INET6 {
		return uint64(uintptr(unsafe.Pointer(&sa.v6))), unix.SizeofSockaddrInet6
	}
	return uint64(uintptr(unsafe.Pointer(&sa.v4))), unix.SizeofSockaddrInet4
}

// putPortBE stores port in network byte order regardless of host
// endianness (sin_port/sin6_port are big-endian bytes in memory).
func putPortBE(dst *uint16, port uint16) {
	p := (*[2]byte)(unsafe.Pointer(dst))
	p[0] = byte(port >> 8)
	p[1] = byte(port)
}
