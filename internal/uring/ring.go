package uring

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Completion records one finished operation: the caller-chosen user_data
// that correlates it with its submission, the signed kernel result code,
// and the CQE flags. The engine never interprets Res beyond releasing the
// pinned resource; a negative Res is the kernel's -errno for the operation
// and is the caller's to handle.
type Completion struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Ring is a single-owner io_uring engine. Lifecycle: NewRing (no kernel
// contact) -> Enter (allocates the kernel ring) -> Prep*/Submit/Peek/Wait
// -> Exit (drops every pinned resource and the kernel ring,
// unconditionally). Every operational method called outside the
// Enter/Exit window fails with ErrNotInitialized.
//
// The engine performs no internal locking; driving one Ring from multiple
// goroutines concurrently is the caller's problem. Identifier uniqueness
// across in-flight operations is likewise a caller contract: reusing a
// live user_data silently misattributes results and releases the wrong
// pinned resource.
type Ring struct {
	depth uint32
	kr    *kring
	reg   registry
}

// NewRing returns a ring configured for the given queue depth. No kernel
// resources are allocated until Enter.
func NewRing(depth uint32) *Ring {
	return &Ring{depth: depth, reg: newRegistry()}
}

// Enter allocates the kernel ring. Idempotent while active. Depth is not
// validated beyond what the kernel rejects.
func (r *Ring) Enter() error {
	if r.kr != nil {
		return nil
	}
	kr, err := newKring(r.depth)
	if err != nil {
		return err
	}
	r.kr = kr
	return nil
}

// Exit drops every pinned resource and releases the kernel ring. It never
// fails: operations still in flight are abandoned and their resources
// freed — the kernel's references die with the ring fd. Safe to call on a
// ring that never entered. The ring may be re-entered afterwards.
func (r *Ring) Exit() {
	r.reg.clearAll()
	if r.kr != nil {
		r.kr.close()
		r.kr = nil
	}
}

// Entries returns the queue depth as rounded up by the kernel, or the
// configured depth before Enter.
func (r *Ring) Entries() uint32 {
	if r.kr != nil {
		return r.kr.entriesRounded()
	}
	return r.depth
}

func (r *Ring) active() (*kring, error) {
	if r.kr == nil {
		return nil, ErrNotInitialized
	}
	return r.kr, nil
}

// Submit flushes all queued-but-unsubmitted entries to the kernel and
// returns the count accepted. Non-blocking; completions are collected
// separately via Peek or Wait.
func (r *Ring) Submit() (int, error) {
	kr, err := r.active()
	if err != nil {
		return 0, err
	}
	n, err := kr.enter(kr.pending, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("io_uring_submit: %w", err)
	}
	if n > kr.pending {
		n = kr.pending
	}
	kr.pending -= n
	return int(n), nil
}

// Peek returns the next available completion, or ok=false if the
// completion queue is empty. Never blocks. Draining the completion
// releases its pinned resource in the same step.
func (r *Ring) Peek() (Completion, bool, error) {
	kr, err := r.active()
	if err != nil {
		return Completion{}, false, err
	}
	cqe, ok := kr.peekCQE()
	if !ok {
		return Completion{}, false, nil
	}
	return r.drain(cqe), true, nil
}

// Wait flushes pending submissions and blocks until at least one
// completion is available, then drains and returns exactly one. Only the
// calling goroutine blocks; the runtime parks the thread for the duration
// of the kernel wait as with any blocking syscall.
func (r *Ring) Wait() (Completion, error) {
	kr, err := r.active()
	if err != nil {
		return Completion{}, err
	}

	toSubmit := kr.pending
	for {
		_, err := kr.enter(toSubmit, 1, enterGetEvents)
		// The kernel consumes submissions before waiting, so even an
		// interrupted wait has flushed them.
		kr.pending -= min(toSubmit, kr.pending)
		if err == unix.EINTR {
			// Interrupted wait (the runtime's preemption signal lands here
			// often); retry the wait alone.
			toSubmit = 0
			continue
		}
		if err != nil {
			return Completion{}, fmt.Errorf("io_uring_wait: %w", err)
		}
		break
	}

	cqe, ok := kr.peekCQE()
	if !ok {
		return Completion{}, ErrNoCompletion
	}
	return r.drain(cqe), nil
}

// drain releases the pinned resource for a reaped CQE and produces its
// completion record. The two happen together: there is no window in which
// the record exists without the release having run, or vice versa.
func (r *Ring) drain(cqe CQE) Completion {
	r.reg.release(cqe.UserData)
	return Completion{UserData: cqe.UserData, Res: cqe.Res, Flags: cqe.Flags}
}

// PrepNop queues a no-op. Carries no pinned memory.
func (r *Ring) PrepNop(id uint64) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	return kr.push(func(sqe *SQE) {
		sqe.PrepNop()
		sqe.UserData = id
	})
}

// PrepTimeout queues a timeout of sec seconds plus nsec nanoseconds. The
// timespec is pinned until the completion (normally -ETIME) is drained.
func (r *Ring) PrepTimeout(id uint64, sec int64, nsec int64) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	ts := &Timespec{Sec: sec, Nsec: nsec}
	r.reg.pinTimespec(id, ts)
	return kr.push(func(sqe *SQE) {
		sqe.PrepTimeout(ts, 0, 0)
		sqe.UserData = id
	})
}

// PrepRead queues a read of up to nbytes at offset into buf. buf is pinned
// until the completion is drained; the caller must not resize it in that
// interval. nbytes is clamped to len(buf) — the kernel never writes past
// the pinned bounds.
func (r *Ring) PrepRead(id uint64, fd int32, buf []byte, nbytes uint32, offset uint64) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinMutable(id, buf)
	pinned := r.reg.mutable[id]
	if nbytes > uint32(len(pinned)) {
		nbytes = uint32(len(pinned))
	}
	return kr.push(func(sqe *SQE) {
		sqe.PrepRead(fd, bufPtr(pinned), nbytes, offset)
		sqe.UserData = id
	})
}

// PrepWrite queues a write of all of buf at offset. buf is treated as
// immutable and pinned until the completion is drained.
func (r *Ring) PrepWrite(id uint64, fd int32, buf []byte, offset uint64) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinImmutable(id, buf)
	pinned := r.reg.immutable[id]
	return kr.push(func(sqe *SQE) {
		sqe.PrepWrite(fd, bufPtr(pinned), uint32(len(pinned)), offset)
		sqe.UserData = id
	})
}

// PrepOpenat queues an openat. The path is copied into a registry-owned,
// null-terminated C string; a path containing an embedded null byte fails
// with ErrInvalidPath and queues nothing. Pass unix.AT_FDCWD as dirfd to
// resolve relative to the working directory. The completion result is the
// new fd.
func (r *Ring) PrepOpenat(id uint64, path string, flags uint32, mode uint32, dirfd int32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	if strings.IndexByte(path, 0) >= 0 {
		return ErrInvalidPath
	}
	cpath := make([]byte, len(path)+1)
	copy(cpath, path)
	r.reg.pinPath(id, cpath)
	pinned := r.reg.paths[id]
	return kr.push(func(sqe *SQE) {
		sqe.PrepOpenat(dirfd, &pinned[0], flags, mode)
		sqe.UserData = id
	})
}

// PrepClose queues a close of fd. Carries no pinned memory.
func (r *Ring) PrepClose(id uint64, fd int32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	return kr.push(func(sqe *SQE) {
		sqe.PrepClose(fd)
		sqe.UserData = id
	})
}

// PrepCancel queues a cancellation of the in-flight operation whose
// user_data equals target. The outcome (cancelled, not found, already
// running) arrives only as the cancel's own completion record.
func (r *Ring) PrepCancel(id uint64, target uint64, flags uint32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	_ = flags // TODO: forward IORING_ASYNC_CANCEL_* flags once callers need cancel-all/fd modes.
	return kr.push(func(sqe *SQE) {
		sqe.PrepCancel(target)
		sqe.UserData = id
	})
}

// PrepSocket queues a socket creation. The completion result is the new
// socket fd.
func (r *Ring) PrepSocket(id uint64, domain, sockType, protocol int32, flags uint32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	_ = flags // TODO: plumb socket flags (e.g. SOCK_NONBLOCK) into the SQE.
	return kr.push(func(sqe *SQE) {
		sqe.PrepSocket(domain, sockType, protocol)
		sqe.UserData = id
	})
}

// PrepBind queues a bind of fd to addr. The address is pinned until the
// completion is drained; the SQE references the pinned copy.
func (r *Ring) PrepBind(id uint64, fd int32, addr *SockAddr) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinAddr(id, addr)
	ptr, ln := r.reg.addrs[id].PointerAndLen()
	return kr.push(func(sqe *SQE) {
		sqe.PrepBind(fd, ptr, ln)
		sqe.UserData = id
	})
}

// PrepListen queues a listen on fd with the given backlog.
func (r *Ring) PrepListen(id uint64, fd int32, backlog int32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	return kr.push(func(sqe *SQE) {
		sqe.PrepListen(fd, backlog)
		sqe.UserData = id
	})
}

// PrepAccept queues an accept on fd. The completion result is the
// connected fd.
func (r *Ring) PrepAccept(id uint64, fd int32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	// TODO: pin a sockaddr for the kernel to fill so callers can see the peer address.
	return kr.push(func(sqe *SQE) {
		sqe.PrepAccept(fd)
		sqe.UserData = id
	})
}

// PrepConnect queues a connect of fd to addr. The address is pinned until
// the completion is drained.
func (r *Ring) PrepConnect(id uint64, fd int32, addr *SockAddr) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinAddr(id, addr)
	ptr, ln := r.reg.addrs[id].PointerAndLen()
	return kr.push(func(sqe *SQE) {
		sqe.PrepConnect(fd, ptr, ln)
		sqe.UserData = id
	})
}

// PrepSend queues a send of all of buf on a connected socket. buf is
// treated as immutable and pinned until the completion is drained.
func (r *Ring) PrepSend(id uint64, fd int32, buf []byte, flags uint32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinImmutable(id, buf)
	pinned := r.reg.immutable[id]
	return kr.push(func(sqe *SQE) {
		sqe.PrepSend(fd, bufPtr(pinned), uint32(len(pinned)), flags)
		sqe.UserData = id
	})
}

// PrepRecv queues a recv into buf on a connected socket. buf is pinned
// until the completion is drained; the caller must not resize it in that
// interval.
func (r *Ring) PrepRecv(id uint64, fd int32, buf []byte, flags uint32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	r.reg.pinMutable(id, buf)
	pinned := r.reg.mutable[id]
	return kr.push(func(sqe *SQE) {
		sqe.PrepRecv(fd, bufPtr(pinned), uint32(len(pinned)), flags)
		sqe.UserData = id
	})
}

// PrepSetsockopt queues enabling SO_REUSEADDR on fd. The 4-byte option
// value lives in the registry until the completion is drained.
// TODO: take level/optname/value parameters once more than address reuse is needed.
func (r *Ring) PrepSetsockopt(id uint64, fd int32) error {
	kr, err := r.active()
	if err != nil {
		return err
	}
	optval := nativeUint32(1)
	r.reg.pinImmutable(id, optval)
	pinned := r.reg.immutable[id]
	return kr.push(func(sqe *SQE) {
		sqe.PrepSetsockopt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, &pinned[0], 4)
		sqe.UserData = id
	})
}

// nativeUint32 renders v as 4 host-endian bytes, the in-memory form of a
// C int option value.
func nativeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.NativeEndian.PutUint32(b, v)
	return b
}

// bufPtr returns the base address of buf, or nil for an empty buffer.
func bufPtr(buf []byte) *byte {
	if len(buf) == 0 {
		return nil
	}
	return &buf[0]
}
