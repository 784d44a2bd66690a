package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"github.com/dl/goring/internal/worker"
)

// RunEcho runs a single-threaded TCP echo server driven entirely through
// the ring: socket, bind, listen, accept, recv and send all complete as
// ring operations. Runs until a fatal error.
// Returns exit code: 2 = error (the server itself never exits cleanly).
func RunEcho(cfg Config) int {
	logger := newLogger(cfg.Verbose)

	w, err := worker.New(cfg.Depth)
	if err != nil {
		logger.Error("ring setup failed", "err", err)
		return 2
	}
	defer w.Close()

	lfd, err := listenSocket(w, cfg)
	if err != nil {
		logger.Error("listen failed", "err", err)
		return 2
	}

	st := pickStyles()
	fmt.Printf("%s listening on %s\n",
		st.Banner.Render("goring echo"),
		st.Addr.Render(fmt.Sprintf("%s:%d", cfg.ListenIP, cfg.Port)))

	return echoLoop(w, lfd, cfg, logger)
}

// RunCat prints each file to stdout, reading it through the ring.
// Returns exit code: 0 = all files read, 2 = error.
func RunCat(cfg Config, paths []string) int {
	logger := newLogger(cfg.Verbose)

	w, err := worker.New(cfg.Depth)
	if err != nil {
		logger.Error("ring setup failed", "err", err)
		return 2
	}
	defer w.Close()

	st := pickStyles()
	multiFile := len(paths) > 1

	code := 0
	for _, path := range paths {
		if err := catFile(w, cfg, path, multiFile, st); err != nil {
			logger.Error("read failed", "path", path, "err", err)
			code = 2
		}
	}
	return code
}

func newLogger(verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level: level,
	})
}

func pickStyles() Styles {
	if StdoutIsTerminal() {
		return NewStyles()
	}
	return NoStyles()
}

// doSync drives a single operation to completion: register, submit, wait.
func doSync(w *worker.Worker, op worker.Operation) (worker.Result, error) {
	if _, err := w.Register(op); err != nil {
		return nil, err
	}
	if _, err := w.Submit(); err != nil {
		return nil, err
	}
	c, err := w.Wait()
	if err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Result, nil
}

// listenSocket builds the listening socket through the ring and returns
// its fd.
func listenSocket(w *worker.Worker, cfg Config) (int32, error) {
	domain := int32(unix.AF_INET)
	if cfg.V6 {
		domain = unix.AF_INET6
	}

	res, err := doSync(w, &worker.SocketCreate{Domain: domain, Type: unix.SOCK_STREAM})
	if err != nil {
		return 0, fmt.Errorf("socket: %w", err)
	}
	fd := res.(worker.SocketCreateResult).Fd

	if _, err := doSync(w, &worker.SocketSetOpt{Fd: fd}); err != nil {
		return 0, fmt.Errorf("setsockopt: %w", err)
	}
	if _, err := doSync(w, &worker.SocketBind{Fd: fd, IP: cfg.ListenIP, Port: cfg.Port, V6: cfg.V6}); err != nil {
		return 0, fmt.Errorf("bind: %w", err)
	}
	if _, err := doSync(w, &worker.SocketListen{Fd: fd, Backlog: cfg.Backlog}); err != nil {
		return 0, fmt.Errorf("listen: %w", err)
	}
	return fd, nil
}

// echoLoop is the server event loop. Every pending operation id maps to
// the connection fd it belongs to; the listening socket always has one
// accept in flight, each connection has exactly one recv or send.
func echoLoop(w *worker.Worker, lfd int32, cfg Config, logger *log.Logger) int {
	pending := make(map[uint64]int32)

	track := func(op worker.Operation, fd int32) error {
		id, err := w.Register(op)
		if err != nil {
			return err
		}
		pending[id] = fd
		return nil
	}

	if err := track(&worker.SocketAccept{Fd: lfd}, lfd); err != nil {
		logger.Error("accept setup failed", "err", err)
		return 2
	}

	for {
		if _, err := w.Submit(); err != nil {
			logger.Error("submit failed", "err", err)
			return 2
		}
		c, err := w.Wait()
		if err != nil {
			logger.Error("wait failed", "err", err)
			return 2
		}
		fd := pending[c.ID]
		delete(pending, c.ID)

		if c.Err != nil {
			if fd == lfd {
				logger.Error("accept failed", "err", c.Err)
				return 2
			}
			logger.Warn("connection error", "fd", fd, "err", c.Err)
			if err := track(&worker.FileClose{Fd: fd}, fd); err != nil {
				logger.Error("close setup failed", "err", err)
				return 2
			}
			continue
		}

		var next worker.Operation
		switch res := c.Result.(type) {
		case worker.SocketAcceptResult:
			logger.Info("accepted", "fd", res.Fd)
			if err := track(&worker.SocketRecv{Fd: res.Fd, Size: cfg.BufSize}, res.Fd); err != nil {
				logger.Error("recv setup failed", "err", err)
				return 2
			}
			next = &worker.SocketAccept{Fd: lfd}
			fd = lfd
		case worker.SocketRecvResult:
			if res.N == 0 {
				logger.Info("closed", "fd", fd)
				next = &worker.FileClose{Fd: fd}
			} else {
				next = &worker.SocketSend{Fd: fd, Data: res.Data}
			}
		case worker.SocketSendResult:
			next = &worker.SocketRecv{Fd: fd, Size: cfg.BufSize}
		case worker.FileCloseResult:
			continue
		default:
			logger.Warn("unexpected completion", "id", c.ID)
			continue
		}

		if err := track(next, fd); err != nil {
			logger.Error("submit setup failed", "err", err)
			return 2
		}
	}
}

func catFile(w *worker.Worker, cfg Config, path string, multiFile bool, st Styles) error {
	res, err := doSync(w, &worker.FileOpen{Path: path, Flags: unix.O_RDONLY})
	if err != nil {
		return err
	}
	fd := res.(worker.FileOpenResult).Fd

	if multiFile {
		fmt.Println(st.Name.Render(path))
	}

	var off uint64
	for {
		res, err := doSync(w, &worker.FileRead{Fd: fd, Size: cfg.BufSize, Offset: off})
		if err != nil {
			doSync(w, &worker.FileClose{Fd: fd})
			return err
		}
		rr := res.(worker.FileReadResult)
		if rr.N == 0 {
			break
		}
		os.Stdout.Write(rr.Data)
		off += uint64(rr.N)
	}

	_, err = doSync(w, &worker.FileClose{Fd: fd})
	return err
}
