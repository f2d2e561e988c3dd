// Package workersrv implements the worker-side half of spec §4.5: a
// listener that accepts one connection per context and runs a
// dispatcher loop per connection, serving each strictly sequentially.
package workersrv

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/ffi"
	"github.com/sx-aurora/veostub/internal/wire"
	"github.com/sx-aurora/veostub/internal/workermem"
)

// Server is the worker-side listener. It owns one memory arena and
// one library table shared by every accepted connection's dispatcher,
// mirroring the teacher's single-listener-many-dispatchers shape.
type Server struct {
	listener net.Listener
	arena    *workermem.Arena
	loader   ffi.Loader
	log      *logrus.Entry

	mu   sync.Mutex
	libs map[uint64]uintptr // library handle -> dlopen handle
	next uint64

	wg sync.WaitGroup
}

// NewServer creates a Server listening on ln. loader resolves dynamic
// libraries and symbols (ffi.PuregoLoader in production; a fake in
// tests).
func NewServer(ln net.Listener, loader ffi.Loader, log *logrus.Entry) *Server {
	return &Server{
		listener: ln,
		arena:    workermem.New(),
		loader:   loader,
		log:      log,
		libs:     make(map[uint64]uintptr),
		next:     1,
	}
}

// Serve accepts connections until the listener is closed or a
// dispatcher handles a QUIT command, which also closes the listener
// (spec §4.5 QUIT: "Stop accepting new connections on the listener").
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dispatch(conn)
		}()
	}
}

// ServeConn runs the dispatcher loop directly on conn, bypassing
// Accept. Production code reaches it only through Serve; tests (and
// internal/fakeworker) use it to stand up a worker against an
// in-memory net.Pipe without a real listener.
func (s *Server) ServeConn(conn net.Conn) {
	s.dispatch(conn)
}

// dispatch serves one accepted connection strictly sequentially until
// CLOSE_CONTEXT, QUIT, or a read/write failure (peer loss).
func (s *Server) dispatch(conn net.Conn) {
	defer conn.Close()

	if s.log != nil {
		if pid, uid, gid, ok := wire.PeerCredentials(conn); ok {
			s.log.WithFields(logrus.Fields{"peer_pid": pid, "peer_uid": uid, "peer_gid": gid}).Debug("accepted connection")
		}
	}

	for {
		var req wire.Request
		if err := wire.ReadFrame(conn, &req); err != nil {
			if s.log != nil {
				s.log.WithError(err).Debug("dispatcher: peer lost")
			}
			return
		}

		if s.log != nil {
			s.log.WithFields(logrus.Fields{"cmd": req.Cmd.String(), "reqid": req.ReqID}).Debug("dispatching request")
		}

		switch req.Cmd {
		case constants.CmdCloseContext:
			return
		case constants.CmdQuit:
			s.listener.Close()
			return
		}

		resp := s.handle(req)
		if err := wire.WriteFrame(conn, &resp); err != nil {
			if s.log != nil {
				s.log.WithError(err).Debug("dispatcher: write failed")
			}
			return
		}
	}
}

// handle dispatches one request to its command handler and always
// returns a Response (commands never fail outward; failures collapse
// to the documented zero/negative sentinels per spec §7).
func (s *Server) handle(req wire.Request) wire.Response {
	switch req.Cmd {
	case constants.CmdLoadLibrary:
		return s.loadLibrary(req)
	case constants.CmdUnloadLibrary:
		return s.unloadLibrary(req)
	case constants.CmdGetSym:
		return s.getSym(req)
	case constants.CmdAllocMem:
		return wire.Response{ReqID: req.ReqID, Result: s.arena.Alloc(req.Size)}
	case constants.CmdFreeMem:
		s.arena.Free(req.Addr)
		return wire.Response{ReqID: req.ReqID, Result: 0}
	case constants.CmdReadMem:
		return s.readMem(req)
	case constants.CmdWriteMem:
		return s.writeMem(req)
	case constants.CmdCallAsync:
		return s.callAsync(req, req.Addr)
	case constants.CmdCallAsyncByName:
		return s.callAsyncByName(req)
	case constants.CmdAsyncReadMem:
		return s.asyncReadMem(req)
	case constants.CmdAsyncWriteMem:
		return s.asyncWriteMem(req)
	case constants.CmdSyncContext:
		return wire.Response{ReqID: req.ReqID, Result: 0}
	default:
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
}

func (s *Server) loadLibrary(req wire.Request) wire.Response {
	handle, err := s.loader.Open(req.LibName)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"libname": req.LibName}).Warn("load_library failed")
		}
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}

	s.mu.Lock()
	libhdl := s.next
	s.next++
	s.libs[libhdl] = handle
	s.mu.Unlock()

	return wire.Response{ReqID: req.ReqID, Result: libhdl}
}

func (s *Server) unloadLibrary(req wire.Request) wire.Response {
	s.mu.Lock()
	handle, ok := s.libs[req.LibHdl]
	delete(s.libs, req.LibHdl)
	s.mu.Unlock()

	if !ok {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	if err := s.loader.Close(handle); err != nil {
		return wire.Response{ReqID: req.ReqID, Result: ^uint64(0)}
	}
	return wire.Response{ReqID: req.ReqID, Result: 0}
}

func (s *Server) getSym(req wire.Request) wire.Response {
	s.mu.Lock()
	handle, ok := s.libs[req.LibHdl]
	s.mu.Unlock()
	if !ok {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}

	addr, err := s.loader.Symbol(handle, req.SymName)
	if err != nil {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return wire.Response{ReqID: req.ReqID, Result: uint64(addr)}
}

func (s *Server) readMem(req wire.Request) wire.Response {
	data, err := s.arena.Read(req.Src, req.Size)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("read_mem failed")
		}
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return wire.Response{ReqID: req.ReqID, Result: 0, Data: data}
}

func (s *Server) writeMem(req wire.Request) wire.Response {
	if err := s.arena.Write(req.Dst, req.Data); err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("write_mem failed")
		}
	}
	return wire.Response{ReqID: req.ReqID, Result: 0}
}

func (s *Server) asyncReadMem(req wire.Request) wire.Response {
	data, err := s.arena.Read(req.Src, req.Size)
	if err != nil {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return wire.Response{ReqID: req.ReqID, Result: 0, Data: data}
}

func (s *Server) asyncWriteMem(req wire.Request) wire.Response {
	if err := s.arena.Write(req.Dst, req.Data); err != nil {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return wire.Response{ReqID: req.ReqID, Result: 0}
}

func (s *Server) callAsyncByName(req wire.Request) wire.Response {
	s.mu.Lock()
	handle, ok := s.libs[req.LibHdl]
	s.mu.Unlock()
	if !ok {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	addr, err := s.loader.Symbol(handle, req.SymName)
	if err != nil {
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return s.callAsync(req, uint64(addr))
}

func (s *Server) callAsync(req wire.Request, addr uint64) wire.Response {
	result, err := ffi.Dispatch(uintptr(addr), req.Args, req.CopyIn)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"addr": fmt.Sprintf("%#x", addr)}).Warn("call dispatch failed")
		}
		return wire.Response{ReqID: req.ReqID, Result: 0}
	}
	return wire.Response{ReqID: req.ReqID, Result: result.Value, CopyOut: result.CopyOut}
}
