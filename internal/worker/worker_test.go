package worker

import (
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func newTestWorker(t *testing.T, depth uint32) *Worker {
	t.Helper()
	w, err := New(depth)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) {
			t.Skipf("io_uring unavailable: %v", err)
		}
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func TestWorker_Nop(t *testing.T) {
	w := newTestWorker(t, 4)

	id, err := w.Register(&Nop{})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}

	c, err := w.Wait()
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if c.ID != id || c.Err != nil {
		t.Fatalf("completion = %+v", c)
	}
	if _, ok := c.Result.(NopResult); !ok {
		t.Fatalf("Result type = %T, want NopResult", c.Result)
	}
	if w.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", w.Pending())
	}
}

func TestWorker_IDsAreSequential(t *testing.T) {
	w := newTestWorker(t, 8)

	for want := uint64(1); want <= 3; want++ {
		id, err := w.Register(&Nop{})
		if err != nil {
			t.Fatalf("Register error: %v", err)
		}
		if id != want {
			t.Fatalf("id = %d, want %d", id, want)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := w.Wait(); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
	}
}

func TestWorker_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.txt")
	payload := []byte("one ring to bind them")

	w := newTestWorker(t, 8)

	// open for writing
	if _, err := w.Register(&FileOpen{Path: path, Flags: unix.O_WRONLY | unix.O_CREAT, Perm: 0o644}); err != nil {
		t.Fatalf("Register(FileOpen) error: %v", err)
	}
	c, err := w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("open completion = %+v, err %v", c, err)
	}
	wfd := c.Result.(FileOpenResult).Fd

	// write
	if _, err := w.Register(&FileWrite{Fd: wfd, Data: payload}); err != nil {
		t.Fatalf("Register(FileWrite) error: %v", err)
	}
	c, err = w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("write completion = %+v, err %v", c, err)
	}
	if n := c.Result.(FileWriteResult).N; n != len(payload) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}

	// close
	if _, err := w.Register(&FileClose{Fd: wfd}); err != nil {
		t.Fatalf("Register(FileClose) error: %v", err)
	}
	if c, err = w.Wait(); err != nil || c.Err != nil {
		t.Fatalf("close completion = %+v, err %v", c, err)
	}

	// open + read back
	if _, err := w.Register(&FileOpen{Path: path, Flags: unix.O_RDONLY}); err != nil {
		t.Fatal(err)
	}
	c, err = w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("reopen completion = %+v, err %v", c, err)
	}
	rfd := c.Result.(FileOpenResult).Fd

	if _, err := w.Register(&FileRead{Fd: rfd, Size: 64}); err != nil {
		t.Fatal(err)
	}
	c, err = w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("read completion = %+v, err %v", c, err)
	}
	rr := c.Result.(FileReadResult)
	if string(rr.Data) != string(payload) {
		t.Fatalf("read %q, want %q", rr.Data, payload)
	}

	if _, err := w.Register(&FileClose{Fd: rfd}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestWorker_OpenMissingFileFails(t *testing.T) {
	w := newTestWorker(t, 4)

	if _, err := w.Register(&FileOpen{Path: filepath.Join(t.TempDir(), "nope"), Flags: unix.O_RDONLY}); err != nil {
		t.Fatal(err)
	}
	c, err := w.Wait()
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if !errors.Is(c.Err, unix.ENOENT) {
		t.Fatalf("Err = %v, want ENOENT", c.Err)
	}
	if c.Result != nil {
		t.Fatalf("Result = %+v, want nil alongside an error", c.Result)
	}
}

func TestWorker_Timeout(t *testing.T) {
	w := newTestWorker(t, 4)

	if _, err := w.Register(&Timeout{Nsec: 2_000_000}); err != nil { // 2ms
		t.Fatal(err)
	}
	c, err := w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("timeout completion = %+v, err %v", c, err)
	}
	if !c.Result.(TimeoutResult).Expired {
		t.Fatal("expected the timeout to report expiry")
	}
}

func TestWorker_CancelTimeout(t *testing.T) {
	w := newTestWorker(t, 4)

	target, err := w.Register(&Timeout{Sec: 60})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Submit(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Register(&Cancel{Target: target}); err != nil {
		t.Fatal(err)
	}

	var found, sawTarget bool
	for i := 0; i < 2; i++ {
		c, err := w.Wait()
		if err != nil {
			t.Fatalf("Wait error: %v", err)
		}
		switch res := c.Result.(type) {
		case CancelResult:
			found = res.Found
		default:
			// The cancelled timeout surfaces as an ECANCELED error.
			if c.ID == target && errors.Is(c.Err, unix.ECANCELED) {
				sawTarget = true
			}
		}
	}
	if !found {
		t.Fatal("cancel did not find its target")
	}
	if !sawTarget {
		t.Fatal("cancelled timeout never completed with ECANCELED")
	}
}

func TestWorker_SocketpairSendRecv(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	w := newTestWorker(t, 8)

	if _, err := w.Register(&SocketSend{Fd: int32(fds[0]), Data: []byte("pong")}); err != nil {
		t.Fatal(err)
	}
	c, err := w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("send completion = %+v, err %v", c, err)
	}
	if n := c.Result.(SocketSendResult).N; n != 4 {
		t.Fatalf("sent %d bytes, want 4", n)
	}

	if _, err := w.Register(&SocketRecv{Fd: int32(fds[1]), Size: 16}); err != nil {
		t.Fatal(err)
	}
	c, err = w.Wait()
	if err != nil || c.Err != nil {
		t.Fatalf("recv completion = %+v, err %v", c, err)
	}
	if got := string(c.Result.(SocketRecvResult).Data); got != "pong" {
		t.Fatalf("recv = %q, want %q", got, "pong")
	}
}

func TestWorker_BindRejectsBadAddress(t *testing.T) {
	w := newTestWorker(t, 4)

	_, err := w.Register(&SocketBind{Fd: 3, IP: "256.0.0.1", Port: 80})
	if err == nil {
		t.Fatal("expected an address parse error")
	}
	if w.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0 after failed register", w.Pending())
	}
}
