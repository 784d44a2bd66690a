package worker

import (
	"github.com/dl/goring/internal/uring"

	"golang.org/x/sys/unix"
)

// Operation is one I/O request the worker can drive through the ring.
// Implementations build their submission in prep and convert the raw
// completion into a typed result in complete.
type Operation interface {
	prep(r *uring.Ring, id uint64) error
	complete(c uring.Completion) Completion
}

// failed maps a negative kernel result to an errno error.
func failed(c uring.Completion) Completion {
	return Completion{ID: c.UserData, Err: unix.Errno(-c.Res)}
}

// Nop completes without doing any I/O.
type Nop struct{}

func (op *Nop) prep(r *uring.Ring, id uint64) error {
	return r.PrepNop(id)
}

func (op *Nop) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: NopResult{}}
}

// Timeout completes after the given duration. Normal expiry surfaces as
// TimeoutResult{Expired: true}; the kernel's -ETIME convention stays
// internal.
type Timeout struct {
	Sec  int64
	Nsec int64
}

func (op *Timeout) prep(r *uring.Ring, id uint64) error {
	return r.PrepTimeout(id, op.Sec, op.Nsec)
}

func (op *Timeout) complete(c uring.Completion) Completion {
	switch {
	case c.Res == -int32(unix.ETIME):
		return Completion{ID: c.UserData, Result: TimeoutResult{Expired: true}}
	case c.Res < 0:
		return failed(c)
	default:
		return Completion{ID: c.UserData, Result: TimeoutResult{}}
	}
}

// FileOpen opens a path relative to the working directory. The resulting
// fd arrives in FileOpenResult.
type FileOpen struct {
	Path  string
	Flags uint32
	Perm  uint32
}

func (op *FileOpen) prep(r *uring.Ring, id uint64) error {
	return r.PrepOpenat(id, op.Path, op.Flags, op.Perm, unix.AT_FDCWD)
}

func (op *FileOpen) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: FileOpenResult{Fd: c.Res}}
}

// FileRead reads up to Size bytes at Offset. The worker allocates the
// buffer; the read bytes arrive in FileReadResult.
type FileRead struct {
	Fd     int32
	Size   uint32
	Offset uint64

	buf []byte
}

func (op *FileRead) prep(r *uring.Ring, id uint64) error {
	op.buf = make([]byte, op.Size)
	return r.PrepRead(id, op.Fd, op.buf, op.Size, op.Offset)
}

func (op *FileRead) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: FileReadResult{Data: op.buf[:c.Res], N: int(c.Res)}}
}

// FileWrite writes Data at Offset.
type FileWrite struct {
	Fd     int32
	Data   []byte
	Offset uint64
}

func (op *FileWrite) prep(r *uring.Ring, id uint64) error {
	return r.PrepWrite(id, op.Fd, op.Data, op.Offset)
}

func (op *FileWrite) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: FileWriteResult{N: int(c.Res)}}
}

// FileClose closes an fd.
type FileClose struct {
	Fd int32
}

func (op *FileClose) prep(r *uring.Ring, id uint64) error {
	return r.PrepClose(id, op.Fd)
}

func (op *FileClose) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: FileCloseResult{}}
}

// Cancel targets another in-flight operation by identifier. The result
// reports whether the target was found and cancelled; the target itself
// still completes (with -ECANCELED) and must be drained separately.
type Cancel struct {
	Target uint64
	Flags  uint32
}

func (op *Cancel) prep(r *uring.Ring, id uint64) error {
	return r.PrepCancel(id, op.Target, op.Flags)
}

func (op *Cancel) complete(c uring.Completion) Completion {
	switch c.Res {
	case 0:
		return Completion{ID: c.UserData, Result: CancelResult{Found: true}}
	case -int32(unix.ENOENT), -int32(unix.EALREADY):
		return Completion{ID: c.UserData, Result: CancelResult{}}
	default:
		return failed(c)
	}
}

// SocketCreate makes a new socket; the fd arrives in SocketCreateResult.
type SocketCreate struct {
	Domain   int32
	Type     int32
	Protocol int32
}

func (op *SocketCreate) prep(r *uring.Ring, id uint64) error {
	return r.PrepSocket(id, op.Domain, op.Type, op.Protocol, 0)
}

func (op *SocketCreate) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketCreateResult{Fd: c.Res}}
}

// SocketSetOpt enables address reuse on a socket.
type SocketSetOpt struct {
	Fd int32
}

func (op *SocketSetOpt) prep(r *uring.Ring, id uint64) error {
	return r.PrepSetsockopt(id, op.Fd)
}

func (op *SocketSetOpt) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketSetOptResult{}}
}

// SocketBind assigns an address and port to a socket. V6 selects the
// address family.
type SocketBind struct {
	Fd   int32
	IP   string
	Port uint16
	V6   bool
}

func (op *SocketBind) prep(r *uring.Ring, id uint64) error {
	sa, err := newSockAddr(op.IP, op.Port, op.V6)
	if err != nil {
		return err
	}
	return r.PrepBind(id, op.Fd, sa)
}

func (op *SocketBind) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketBindResult{}}
}

// SocketListen marks a socket as passive.
type SocketListen struct {
	Fd      int32
	Backlog int32
}

func (op *SocketListen) prep(r *uring.Ring, id uint64) error {
	return r.PrepListen(id, op.Fd, op.Backlog)
}

func (op *SocketListen) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketListenResult{}}
}

// SocketAccept waits for an incoming connection; the connected fd arrives
// in SocketAcceptResult.
type SocketAccept struct {
	Fd int32
}

func (op *SocketAccept) prep(r *uring.Ring, id uint64) error {
	return r.PrepAccept(id, op.Fd)
}

func (op *SocketAccept) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketAcceptResult{Fd: c.Res}}
}

// SocketConnect connects a socket to a remote address.
type SocketConnect struct {
	Fd   int32
	IP   string
	Port uint16
	V6   bool
}

func (op *SocketConnect) prep(r *uring.Ring, id uint64) error {
	sa, err := newSockAddr(op.IP, op.Port, op.V6)
	if err != nil {
		return err
	}
	return r.PrepConnect(id, op.Fd, sa)
}

func (op *SocketConnect) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketConnectResult{}}
}

// SocketSend writes Data to a connected socket.
type SocketSend struct {
	Fd   int32
	Data []byte
}

func (op *SocketSend) prep(r *uring.Ring, id uint64) error {
	return r.PrepSend(id, op.Fd, op.Data, 0)
}

func (op *SocketSend) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketSendResult{N: int(c.Res)}}
}

// SocketRecv reads up to Size bytes from a connected socket. The worker
// allocates the buffer; the received bytes arrive in SocketRecvResult.
type SocketRecv struct {
	Fd   int32
	Size uint32

	buf []byte
}

func (op *SocketRecv) prep(r *uring.Ring, id uint64) error {
	op.buf = make([]byte, op.Size)
	return r.PrepRecv(id, op.Fd, op.buf, 0)
}

func (op *SocketRecv) complete(c uring.Completion) Completion {
	if c.Res < 0 {
		return failed(c)
	}
	return Completion{ID: c.UserData, Result: SocketRecvResult{Data: op.buf[:c.Res], N: int(c.Res)}}
}

func newSockAddr(ip string, port uint16, v6 bool) (*uring.SockAddr, error) {
	if v6 {
		return uring.V6(ip, port)
	}
	return uring.V4(ip, port)
}
