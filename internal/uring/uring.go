// Package uring drives a kernel io_uring instance: a pair of lock-free
// queues shared with the kernel through which the caller submits I/O
// requests and later collects their results out of order.
// Pure Go, no CGO. Uses unsafe for kernel struct layouts and ring pointer
// arithmetic. Only supports plain submit/peek/wait — no SQPOLL, no fixed
// files, no SQE chaining.
//
// The hard part is memory safety across the process/kernel boundary: the
// kernel holds raw addresses into user memory for as long as an operation
// is in flight. Every piece of such memory is owned by the ring's pinned
// resource registry, keyed by the operation's user_data, and is dropped
// only when the matching completion is drained (or at teardown).
package uring

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// Mmap offsets for io_uring_setup.
	offSQRing = 0
	offCQRing = 0x8000000
	offSQEs   = 0x10000000

	// io_uring_enter flags.
	enterGetEvents = 1

	// io_uring_params features.
	featSingleMmap = 1 << 0
)

// sqringOffsets matches struct io_sqring_offsets from linux/io_uring.h.
type sqringOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	UserAddr    uint64
}

// cqringOffsets matches struct io_cqring_offsets from linux/io_uring.h.
type cqringOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	CQEs        uint32
	Flags       uint32
	Resv1       uint32
	UserAddr    uint64
}

// params matches struct io_uring_params from linux/io_uring.h.
type params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	Resv         [3]uint32
	SQOff        sqringOffsets
	CQOff        cqringOffsets
}

// SQE is a 64-byte submission queue entry matching struct io_uring_sqe.
type SQE struct {
	Opcode      uint8
	Flags       uint8
	Ioprio      uint16
	Fd          int32
	Off         uint64 // file offset, addr2, or cmd_op
	Addr        uint64 // buffer address, pathname, or level/optname
	Len         uint32 // buffer length
	OpcodeFlags uint32 // union: rw_flags, open_flags, msg_flags, etc.
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32 // union: splice_fd_in, file_index, optlen
	Addr3       uint64
	_pad2       [1]uint64
}

// CQE is a 16-byte completion queue entry matching struct io_uring_cqe.
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Timespec matches struct __kernel_timespec (fields are 64-bit on every
// architecture, unlike syscall.Timespec).
type Timespec struct {
	Sec  int64
	Nsec int64
}

// kring is the raw kernel-side ring: the io_uring fd plus the mmap'd
// submission and completion queues. Ring wraps it with the lifecycle state
// machine and the pinned resource registry.
type kring struct {
	fd      int
	sqMem   []byte // mmap'd SQ ring
	cqMem   []byte // mmap'd CQ ring (may be same as sqMem with SINGLE_MMAP)
	sqesMem []byte // mmap'd SQE array

	// SQ ring pointers (into mmap'd memory)
	sqHead  *uint32
	sqTail  *uint32
	sqMask  uint32
	sqArray unsafe.Pointer // base of uint32 indirection array

	// CQ ring pointers (into mmap'd memory)
	cqHead *uint32
	cqTail *uint32
	cqMask uint32
	cqes   unsafe.Pointer // base of CQE array

	sqes    unsafe.Pointer // base of SQE array
	entries uint32
	pending uint32 // SQEs pushed but not yet handed to the kernel
}

// newKring creates a kernel io_uring instance with the given number of
// entries. The kernel rounds entries up to the next power of 2 and rejects
// invalid depths itself; no validation happens here.
func newKring(entries uint32) (*kring, error) {
	var p params
	fd, _, errno := syscall.RawSyscall(unix.SYS_IO_URING_SETUP,
		uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	r := &kring{
		fd:      int(fd),
		entries: p.SQEntries,
	}

	if err := r.mmapRings(&p); err != nil {
		unix.Close(r.fd)
		return nil, err
	}

	return r, nil
}

func (r *kring) mmapRings(p *params) error {
	// Map SQ ring
	sqRingSize := p.SQOff.Array + p.SQEntries*4 // array of uint32
	sqMem, err := syscall.Mmap(r.fd, offSQRing, int(sqRingSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("mmap sq ring: %w", err)
	}
	r.sqMem = sqMem

	// Map CQ ring (may be same region with SINGLE_MMAP)
	if p.Features&featSingleMmap != 0 {
		r.cqMem = sqMem
	} else {
		cqRingSize := p.CQOff.CQEs + p.CQEntries*uint32(unsafe.Sizeof(CQE{}))
		cqMem, err := syscall.Mmap(r.fd, offCQRing, int(cqRingSize),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
		if err != nil {
			syscall.Munmap(sqMem)
			return fmt.Errorf("mmap cq ring: %w", err)
		}
		r.cqMem = cqMem
	}

	// Map SQE array
	sqeSize := p.SQEntries * uint32(unsafe.Sizeof(SQE{}))
	sqesMem, err := syscall.Mmap(r.fd, offSQEs, int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		if r.cqMem != nil && &r.cqMem[0] != &r.sqMem[0] {
			syscall.Munmap(r.cqMem)
		}
		syscall.Munmap(r.sqMem)
		return fmt.Errorf("mmap sqes: %w", err)
	}
	r.sqesMem = sqesMem

	// Set up SQ pointers
	base := unsafe.Pointer(&sqMem[0])
	r.sqHead = (*uint32)(unsafe.Add(base, p.SQOff.Head))
	r.sqTail = (*uint32)(unsafe.Add(base, p.SQOff.Tail))
	r.sqMask = *(*uint32)(unsafe.Add(base, p.SQOff.RingMask))
	r.sqArray = unsafe.Add(base, p.SQOff.Array)

	// Set up CQ pointers
	cqBase := unsafe.Pointer(&r.cqMem[0])
	r.cqHead = (*uint32)(unsafe.Add(cqBase, p.CQOff.Head))
	r.cqTail = (*uint32)(unsafe.Add(cqBase, p.CQOff.Tail))
	r.cqMask = *(*uint32)(unsafe.Add(cqBase, p.CQOff.RingMask))
	r.cqes = unsafe.Add(cqBase, p.CQOff.CQEs)

	// SQE array base
	r.sqes = unsafe.Pointer(&sqesMem[0])

	return nil
}

// close releases all ring resources. Outstanding operations are abandoned;
// the kernel drops its side of the rings when the fd closes.
func (r *kring) close() {
	if r.sqesMem != nil {
		syscall.Munmap(r.sqesMem)
	}
	if r.cqMem != nil && (r.sqMem == nil || &r.cqMem[0] != &r.sqMem[0]) {
		syscall.Munmap(r.cqMem)
	}
	if r.sqMem != nil {
		syscall.Munmap(r.sqMem)
	}
	unix.Close(r.fd)
}

// push claims the next SQE slot, zeroes it, lets fill populate it, and
// advances the SQ tail. Returns ErrSubmissionQueueFull when every entry is
// in use. The pushed entry stays invisible to the kernel until enter.
func (r *kring) push(fill func(sqe *SQE)) error {
	head := atomic.LoadUint32(r.sqHead)
	tail := atomic.LoadUint32(r.sqTail)
	if tail-head >= r.entries {
		return ErrSubmissionQueueFull
	}

	idx := tail & r.sqMask
	sqe := (*SQE)(unsafe.Add(r.sqes, uintptr(idx)*unsafe.Sizeof(SQE{})))
	*sqe = SQE{}
	fill(sqe)

	// SQ array slot -> SQE index, then advance the tail (release semantics —
	// the kernel reads the tail).
	*(*uint32)(unsafe.Add(r.sqArray, uintptr(idx)*4)) = idx
	atomic.StoreUint32(r.sqTail, tail+1)
	r.pending++
	return nil
}

// enter performs io_uring_enter, returning the number of SQEs the kernel
// consumed. On failure the raw errno is returned; callers wrap it with the
// phase they were in (submit vs wait).
func (r *kring) enter(toSubmit, minComplete uint32, flags uint32) (uint32, error) {
	n, _, errno := syscall.Syscall6(unix.SYS_IO_URING_ENTER,
		uintptr(r.fd), uintptr(toSubmit), uintptr(minComplete),
		uintptr(flags), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return uint32(n), nil
}

// peekCQE pops the next completion entry if one is available. Non-blocking.
func (r *kring) peekCQE() (CQE, bool) {
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	if head == tail {
		return CQE{}, false
	}

	idx := head & r.cqMask
	cqe := *(*CQE)(unsafe.Add(r.cqes, uintptr(idx)*unsafe.Sizeof(CQE{})))
	atomic.StoreUint32(r.cqHead, head+1)
	return cqe, true
}

// entriesRounded returns the ring size as rounded up by the kernel.
func (r *kring) entriesRounded() uint32 {
	return r.entries
}
