package uring

import "unsafe"

// io_uring opcodes from linux/io_uring.h.
const (
	OpNop         = 0
	OpTimeout     = 11 // 5.4+
	OpAccept      = 13 // 5.5+
	OpAsyncCancel = 14 // 5.5+
	OpConnect     = 16 // 5.5+
	OpOpenat      = 18 // 5.6+
	OpClose       = 19 // 5.6+
	OpRead        = 22 // 5.6+
	OpWrite       = 23 // 5.6+
	OpSend        = 26 // 5.6+
	OpRecv        = 27 // 5.6+
	OpSocket      = 45 // 5.19+
	OpUringCmd    = 46 // 5.19+
	OpBind        = 56 // 6.11+
	OpListen      = 57 // 6.11+
)

// Socket-level uring-cmd op (cmd_op field of IORING_OP_URING_CMD),
// from enum io_uring_socket_op. Setsockopt through the ring needs 6.7+.
const sockCmdSetsockopt = 3

// PrepNop sets up an SQE for IORING_OP_NOP.
func (sqe *SQE) PrepNop() {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpNop
}

// PrepTimeout sets up an SQE for IORING_OP_TIMEOUT.
// ts must stay alive until the CQE is reaped. The kernel posts -ETIME on
// normal expiry; count completions arriving first complete it with 0.
func (sqe *SQE) PrepTimeout(ts *Timespec, count uint64, flags uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpTimeout
	sqe.Fd = -1
	sqe.Addr = uint64(uintptr(unsafe.Pointer(ts)))
	sqe.Len = 1 // one timespec
	sqe.Off = count
	sqe.OpcodeFlags = flags
}

// PrepRead sets up an SQE for IORING_OP_READ.
// buf must stay alive and un-moved until the CQE is reaped.
func (sqe *SQE) PrepRead(fd int32, buf *byte, nbytes uint32, offset uint64) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpRead
	sqe.Fd = fd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(buf)))
	sqe.Len = nbytes
	sqe.Off = offset
}

// PrepWrite sets up an SQE for IORING_OP_WRITE.
func (sqe *SQE) PrepWrite(fd int32, buf *byte, nbytes uint32, offset uint64) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpWrite
	sqe.Fd = fd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(buf)))
	sqe.Len = nbytes
	sqe.Off = offset
}

// PrepOpenat sets up an SQE for IORING_OP_OPENAT.
// pathPtr must point to a null-terminated C string that stays alive until
// the CQE is reaped.
func (sqe *SQE) PrepOpenat(dirfd int32, pathPtr *byte, flags uint32, mode uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpOpenat
	sqe.Fd = dirfd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(pathPtr)))
	sqe.Len = mode
	sqe.OpcodeFlags = flags
}

// PrepClose sets up an SQE for IORING_OP_CLOSE.
func (sqe *SQE) PrepClose(fd int32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpClose
	sqe.Fd = fd
}

// PrepCancel sets up an SQE for IORING_OP_ASYNC_CANCEL targeting the
// in-flight operation whose user_data equals target. The completion
// reports 0 on cancel, -ENOENT if no such operation was found, -EALREADY
// if it was already executing.
func (sqe *SQE) PrepCancel(target uint64) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpAsyncCancel
	sqe.Fd = -1
	sqe.Addr = target
}

// PrepSocket sets up an SQE for IORING_OP_SOCKET. The completion result is
// the new socket fd.
func (sqe *SQE) PrepSocket(domain, sockType, protocol int32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpSocket
	sqe.Fd = domain
	sqe.Off = uint64(sockType)
	sqe.Len = uint32(protocol)
}

// PrepBind sets up an SQE for IORING_OP_BIND. addr is the raw pointer to a
// kernel-ABI sockaddr that stays alive until the CQE is reaped.
func (sqe *SQE) PrepBind(fd int32, addr uint64, addrLen uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpBind
	sqe.Fd = fd
	sqe.Addr = addr
	sqe.Off = uint64(addrLen)
}

// PrepListen sets up an SQE for IORING_OP_LISTEN.
func (sqe *SQE) PrepListen(fd int32, backlog int32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpListen
	sqe.Fd = fd
	sqe.Len = uint32(backlog)
}

// PrepAccept sets up an SQE for IORING_OP_ACCEPT with no peer address
// capture (addr and addrlen both NULL). The completion result is the
// connected fd.
func (sqe *SQE) PrepAccept(fd int32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpAccept
	sqe.Fd = fd
}

// PrepConnect sets up an SQE for IORING_OP_CONNECT. addr is the raw
// pointer to a kernel-ABI sockaddr that stays alive until the CQE is
// reaped.
func (sqe *SQE) PrepConnect(fd int32, addr uint64, addrLen uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpConnect
	sqe.Fd = fd
	sqe.Addr = addr
	sqe.Off = uint64(addrLen)
}

// PrepSend sets up an SQE for IORING_OP_SEND.
func (sqe *SQE) PrepSend(fd int32, buf *byte, nbytes uint32, flags uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpSend
	sqe.Fd = fd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(buf)))
	sqe.Len = nbytes
	sqe.OpcodeFlags = flags
}

// PrepRecv sets up an SQE for IORING_OP_RECV.
func (sqe *SQE) PrepRecv(fd int32, buf *byte, nbytes uint32, flags uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpRecv
	sqe.Fd = fd
	sqe.Addr = uint64(uintptr(unsafe.Pointer(buf)))
	sqe.Len = nbytes
	sqe.OpcodeFlags = flags
}

// PrepSetsockopt sets up an SQE for the SOCKET_URING_OP_SETSOCKOPT
// uring-cmd. Field placement follows io_uring_prep_cmd_sock: cmd_op
// overlays off, level/optname overlay addr, optlen overlays splice_fd_in,
// optval overlays addr3. optval must stay alive until the CQE is reaped.
func (sqe *SQE) PrepSetsockopt(fd int32, level, optname uint32, optval *byte, optlen uint32) {
	*sqe = SQE{} // zero out
	sqe.Opcode = OpUringCmd
	sqe.Fd = fd
	sqe.Off = sockCmdSetsockopt
	sqe.Addr = uint64(level) | uint64(optname)<<32
	sqe.SpliceFdIn = int32(optlen)
	sqe.Addr3 = uint64(uintptr(unsafe.Pointer(optval)))
}
