// Package asm implements the ASM Microservices Supervisor (C8): lifecycle
// management of the three out-of-process emulator services (minimal-trace,
// ROM-histogram, memory-ops), which communicate with this core over POSIX
// shared memory using a fixed 4-word request/response header protocol.
package asm

import "fmt"

// CmdID is one of the fixed request/response command identifiers the shared
// shmem protocol carries in a Frame's Cmd field (separate from the 4-word
// Header, whose word 0 is the version).
type CmdID uint64

const (
	CmdPingReq         CmdID = 1
	CmdPingResp        CmdID = 2
	CmdMinimalTraceReq CmdID = 3
	CmdMinimalTraceResp CmdID = 4
	CmdRomHistogramReq CmdID = 5
	CmdRomHistogramResp CmdID = 6
	CmdMemoryOpsReq    CmdID = 7
	CmdMemoryOpsResp   CmdID = 8
	CmdShutdownReq     CmdID = 1_000_000
	CmdShutdownResp    CmdID = 1_000_001
)

// respFor maps a request command id to the response id the service must
// reply with. A reply carrying any other id desynchronizes the protocol.
func respFor(req CmdID) (CmdID, bool) {
	switch req {
	case CmdPingReq:
		return CmdPingResp, true
	case CmdMinimalTraceReq:
		return CmdMinimalTraceResp, true
	case CmdRomHistogramReq:
		return CmdRomHistogramResp, true
	case CmdMemoryOpsReq:
		return CmdMemoryOpsResp, true
	case CmdShutdownReq:
		return CmdShutdownResp, true
	default:
		return 0, false
	}
}

// Header is the fixed 4-word shared-memory region header every service
// exposes ahead of its service-specific data body.
type Header struct {
	Version       uint32
	ExitCode      int32
	AllocatedSize uint64
	Steps         uint64
}

// HeaderWords is the fixed header size in 64-bit words.
const HeaderWords = 4

// EncodeHeader packs h into 4 64-bit words.
func EncodeHeader(h Header) [HeaderWords]uint64 {
	return [HeaderWords]uint64{
		uint64(h.Version),
		uint64(uint32(h.ExitCode)),
		h.AllocatedSize,
		h.Steps,
	}
}

// DecodeHeader unpacks a 4-word header region.
func DecodeHeader(words [HeaderWords]uint64) Header {
	return Header{
		Version:       uint32(words[0]),
		ExitCode:      int32(words[1]),
		AllocatedSize: words[2],
		Steps:         words[3],
	}
}

// Frame is one request or response: a command id plus its 4-word control
// header and an opaque service-specific body.
type Frame struct {
	Cmd    CmdID
	Header Header
	Body   []byte
}

// DesyncError reports a response whose command id didn't match what the
// request expected — per the supervisor's failure-mode contract, this means
// the service must be torn down and re-initialized, not retried in place.
type DesyncError struct {
	Want CmdID
	Got  CmdID
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("asm: protocol desync: want resp id %d, got %d", e.Want, e.Got)
}
