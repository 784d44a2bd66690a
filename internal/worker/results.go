package worker

// Result is the typed outcome of one completed operation. The concrete
// type matches the operation that was registered.
type Result interface {
	result()
}

// NopResult is the outcome of a Nop.
type NopResult struct{}

// TimeoutResult reports whether a timeout ran to expiry (true) or was
// completed early, e.g. by cancellation racing its drain.
type TimeoutResult struct {
	Expired bool
}

// FileOpenResult carries the fd of a freshly opened file.
type FileOpenResult struct {
	Fd int32
}

// FileReadResult carries the bytes a read produced. Data aliases the
// worker-allocated buffer, valid indefinitely after completion.
type FileReadResult struct {
	Data []byte
	N    int
}

// FileWriteResult carries the number of bytes written.
type FileWriteResult struct {
	N int
}

// FileCloseResult is the outcome of a close.
type FileCloseResult struct{}

// CancelResult reports whether the cancel's target was found and
// cancelled. False means the target had already completed or was past the
// point of no return.
type CancelResult struct {
	Found bool
}

// SocketCreateResult carries the fd of a freshly created socket.
type SocketCreateResult struct {
	Fd int32
}

// SocketSetOptResult is the outcome of a setsockopt.
type SocketSetOptResult struct{}

// SocketBindResult is the outcome of a bind.
type SocketBindResult struct{}

// SocketListenResult is the outcome of a listen.
type SocketListenResult struct{}

// SocketAcceptResult carries the fd of an accepted connection.
type SocketAcceptResult struct {
	Fd int32
}

// SocketConnectResult is the outcome of a connect.
type SocketConnectResult struct{}

// SocketSendResult carries the number of bytes sent.
type SocketSendResult struct {
	N int
}

// SocketRecvResult carries the bytes a recv produced.
type SocketRecvResult struct {
	Data []byte
	N    int
}

func (NopResult) result()           {}
func (TimeoutResult) result()       {}
func (FileOpenResult) result()      {}
func (FileReadResult) result()      {}
func (FileWriteResult) result()     {}
func (FileCloseResult) result()     {}
func (CancelResult) result()        {}
func (SocketCreateResult) result()  {}
func (SocketSetOptResult) result()  {}
func (SocketBindResult) result()    {}
func (SocketListenResult) result()  {}
func (SocketAcceptResult) result()  {}
func (SocketConnectResult) result() {}
func (SocketSendResult) result()    {}
func (SocketRecvResult) result()    {}
