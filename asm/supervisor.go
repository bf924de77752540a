package asm

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Service is one out-of-process emulator microservice (minimal-trace,
// rom-histogram, or memory-ops): a subprocess the Supervisor starts, pings
// until ready, and drives with typed request/response frames over shared
// memory.
type Service interface {
	// Name identifies the service for logging ("minimal_trace", etc).
	Name() string
	// Start spawns the subprocess and creates its shared segment(s).
	Start(ctx context.Context) error
	// Request sends req and blocks for the matching response frame.
	Request(ctx context.Context, req Frame) (Frame, error)
	// Stop issues a cooperative Shutdown frame, waits a grace period, then
	// kills the subprocess if it hasn't exited.
	Stop(ctx context.Context, grace time.Duration) error
}

// Health is a point-in-time snapshot of one service's liveness, surfaced
// through the single-ELF server's status response.
type Health struct {
	Name                string
	Alive               bool
	LastPingLatency     time.Duration
	ConsecutiveFailures int
}

// Supervisor manages the lifecycle of the ASM microservices declared at
// construction. When a service's Ping fails PingRetries consecutive times,
// the supervisor marks it dead and the core falls back to an in-process
// emulator (the caller supplies the fallback; the supervisor only reports
// deadness via IsFallback/Health).
type Supervisor struct {
	services    map[string]Service
	pingRetries int
	pingTimeout time.Duration

	mu     sync.Mutex
	health map[string]*Health
	dead   map[string]bool

	log *logrus.Entry
}

// NewSupervisor builds a Supervisor over services, making up to pingRetries
// ping attempts (each bounded by pingTimeout) before declaring a service
// dead.
func NewSupervisor(services []Service, pingRetries int, pingTimeout time.Duration) *Supervisor {
	if pingRetries <= 0 {
		pingRetries = 3
	}
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	byName := make(map[string]Service, len(services))
	health := make(map[string]*Health, len(services))
	for _, s := range services {
		byName[s.Name()] = s
		health[s.Name()] = &Health{Name: s.Name()}
	}
	return &Supervisor{
		services:    byName,
		pingRetries: pingRetries,
		pingTimeout: pingTimeout,
		health:      health,
		dead:        make(map[string]bool),
		log:         logrus.WithField("component", "asm"),
	}
}

// StartAll starts every service and pings each until it acknowledges or
// exhausts its retry budget (in which case it is marked dead rather than
// failing StartAll outright — the core proceeds with an in-process
// fallback for that service).
func (s *Supervisor) StartAll(ctx context.Context) error {
	for name, svc := range s.services {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("asm: start service %q: %w", name, err)
		}
		s.pingUntilReady(ctx, svc)
	}
	return nil
}

func (s *Supervisor) pingUntilReady(ctx context.Context, svc Service) {
	name := svc.Name()
	for attempt := 0; attempt < s.pingRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
		start := time.Now()
		_, err := svc.Request(pingCtx, Frame{Cmd: CmdPingReq})
		cancel()
		latency := time.Since(start)

		s.mu.Lock()
		h := s.health[name]
		h.LastPingLatency = latency
		if err != nil {
			h.ConsecutiveFailures++
			h.Alive = false
		} else {
			h.ConsecutiveFailures = 0
			h.Alive = true
		}
		s.mu.Unlock()

		if err == nil {
			return
		}
		s.log.WithFields(logrus.Fields{"service": name, "attempt": attempt + 1}).Warn("asm ping failed")
	}

	s.mu.Lock()
	s.dead[name] = true
	s.mu.Unlock()
	s.log.WithField("service", name).Error("asm service marked dead, falling back to in-process emulator")
}

// IsFallback reports whether name's service has been marked dead and the
// caller should use the in-process emulator instead.
func (s *Supervisor) IsFallback(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dead[name]
}

// Health returns a snapshot of every service's current health.
func (s *Supervisor) Health() []Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Health, 0, len(s.health))
	for _, h := range s.health {
		out = append(out, *h)
	}
	return out
}

// Request sends req to the named service. If a response arrives with a
// command id that doesn't match what req expects, the service is torn down
// and marked dead (a DesyncError is returned) — per the protocol contract,
// desync is never retried in place.
func (s *Supervisor) Request(ctx context.Context, name string, req Frame) (Frame, error) {
	svc, ok := s.services[name]
	if !ok {
		return Frame{}, fmt.Errorf("asm: unknown service %q", name)
	}
	wantResp, ok := respFor(req.Cmd)
	if !ok {
		return Frame{}, fmt.Errorf("asm: unknown request command %d", req.Cmd)
	}
	resp, err := svc.Request(ctx, req)
	if err != nil {
		return Frame{}, err
	}
	if resp.Cmd != wantResp {
		s.mu.Lock()
		s.dead[name] = true
		s.mu.Unlock()
		_ = svc.Stop(ctx, 0)
		return Frame{}, &DesyncError{Want: wantResp, Got: resp.Cmd}
	}
	return resp, nil
}

// StopAll calls Stop on every service, passing grace as the time each has to
// exit before it is killed.
func (s *Supervisor) StopAll(ctx context.Context, grace time.Duration) {
	for name, svc := range s.services {
		if err := svc.Stop(ctx, grace); err != nil {
			s.log.WithField("service", name).WithError(err).Warn("asm service stop failed")
		}
	}
}

// SubprocessService is the Service implementation backed by a real OS
// subprocess. It is the production implementation; tests substitute a fake
// Service instead. It creates no shared-memory Segment: Start only spawns
// the subprocess, and Request is not wired (see Request).
type SubprocessService struct {
	name     string
	cmdPath  string
	args     []string
	segment  *Segment
	process  *exec.Cmd
}

// NewSubprocessService builds a SubprocessService that will spawn cmdPath
// with args. segmentName and segmentSize are accepted but not used; no
// segment is created or opened.
func NewSubprocessService(name, cmdPath string, args []string, segmentName string, segmentSize int) *SubprocessService {
	return &SubprocessService{name: name, cmdPath: cmdPath, args: args, segment: nil}
}

func (s *SubprocessService) Name() string { return s.name }

func (s *SubprocessService) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cmdPath, s.args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("asm: spawn %s: %w", s.name, err)
	}
	s.process = cmd
	return nil
}

// Request is intentionally unimplemented at this layer: the wire format of
// each service's typed body (minimal-trace / rom-histogram / memory-ops)
// belongs to the out-of-scope ELF transpiler/emulator; SubprocessService
// provides only the process+segment plumbing the Supervisor depends on.
func (s *SubprocessService) Request(ctx context.Context, req Frame) (Frame, error) {
	return Frame{}, fmt.Errorf("asm: %s: service-specific body codec not wired", s.name)
}

// Stop sends no Shutdown frame (Request is not wired); it waits up to grace
// for the subprocess to exit on its own, then kills it.
func (s *SubprocessService) Stop(ctx context.Context, grace time.Duration) error {
	if s.process == nil || s.process.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.process.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return s.process.Process.Kill()
	}
}
