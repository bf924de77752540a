package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// state is the server's Idle/Working/Exiting machine, backed by an
// atomic.Int32 so the busy-flag invariant ("at most one prove/verify
// operation active at any time") is checked without a mutex on the hot path.
type state int32

const (
	stateIdle state = iota
	stateWorking
	stateExiting
)

// Prover is the narrow interface the server drives for verify_constraints
// and prove requests — the actual witness/proof pipeline (sched + pctx +
// aggregate) lives behind it so this package stays testable without a real
// proving backend.
type Prover interface {
	VerifyConstraints(ctx context.Context, input string, debug bool) error
	Prove(ctx context.Context, input string, aggregation, finalSnark, verifyProofs bool) error
}

// Shutter is implemented by whatever owns the ASM supervisor, so the server
// can stop it cooperatively on a shutdown request without importing the asm
// package directly.
type Shutter interface {
	Shutdown(ctx context.Context, grace time.Duration) error
}

// Server is the single-ELF prover's TCP line-JSON front end.
type Server struct {
	ServerID string
	ElfPath  string

	prover  Prover
	shutter Shutter

	state     atomic.Int32
	startedAt time.Time

	log *logrus.Entry
}

// New builds a Server bound to elfPath, driving prover for verify/prove
// requests and shutter (if non-nil) on a shutdown request.
func New(serverID, elfPath string, prover Prover, shutter Shutter) *Server {
	return &Server{
		ServerID:  serverID,
		ElfPath:   elfPath,
		prover:    prover,
		shutter:   shutter,
		startedAt: time.Now(),
		log:       logrus.WithField("component", "server"),
	}
}

// Serve accepts connections on ln until ctx is done or a shutdown request is
// handled, serving each connection's line-JSON requests sequentially.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			s.handleConn(ctx, conn)
			if state(s.state.Load()) == stateExiting {
				cancel()
			}
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		line := scanner.Bytes()
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(Response{Result: ResultError, Code: CodeError, Msg: "invalid request", Node: s.ServerID})
			continue
		}
		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			s.log.WithError(err).Warn("failed to write response")
			return
		}
		if req.Cmd == "shutdown" {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Cmd {
	case "status":
		return s.handleStatus()
	case "verify_constraints":
		return s.handleWork(ctx, req, false)
	case "prove":
		return s.handleWork(ctx, req, true)
	case "shutdown":
		return s.handleShutdown(ctx)
	default:
		return Response{Cmd: req.Cmd, Result: ResultError, Code: CodeError, Msg: "unknown command", Node: s.ServerID}
	}
}

func (s *Server) handleStatus() Response {
	st := state(s.state.Load())
	status := "idle"
	if st == stateWorking {
		status = "working"
	}
	return Response{
		Cmd: "status", Result: ResultOk, Node: s.ServerID,
		ServerID: s.ServerID, Elf: s.ElfPath,
		UptimeMS: time.Since(s.startedAt).Milliseconds(),
		Status:   status,
	}
}

// handleWork implements the busy-flag invariant: a prove/verify request
// while Working immediately returns Busy without altering state.
func (s *Server) handleWork(ctx context.Context, req Request, isProve bool) Response {
	if !s.state.CompareAndSwap(int32(stateIdle), int32(stateWorking)) {
		return Response{Cmd: req.Cmd, Result: ResultError, Code: CodeBusy, Node: s.ServerID}
	}
	defer s.state.Store(int32(stateIdle))

	var err error
	if isProve {
		err = s.prover.Prove(ctx, req.Input, req.Aggregation, req.FinalSnark, req.VerifyProofs)
	} else {
		err = s.prover.VerifyConstraints(ctx, req.Input, req.Debug)
	}
	if err != nil {
		return Response{Cmd: req.Cmd, Result: ResultError, Code: CodeError, Msg: err.Error(), Node: s.ServerID}
	}
	return Response{Cmd: req.Cmd, Result: ResultOk, Node: s.ServerID}
}

func (s *Server) handleShutdown(ctx context.Context) Response {
	s.state.Store(int32(stateExiting))
	if s.shutter != nil {
		if err := s.shutter.Shutdown(ctx, 2*time.Second); err != nil {
			return Response{Cmd: "shutdown", Result: ResultError, Code: CodeError, Msg: err.Error(), Node: s.ServerID}
		}
	}
	return Response{Cmd: "shutdown", Result: ResultOk, Node: s.ServerID}
}

// Listen is a small convenience wrapper distinguishing a bind failure (exit
// code 2 per the CLI contract) from other startup errors.
func Listen(network, address string) (net.Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("server: bind %s: %w", address, err)
	}
	return ln, nil
}
