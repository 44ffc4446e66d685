//go:build linux

// Package forksrv implements the process supervisor: a fork-server that owns
// the target process's lifecycle on behalf of a driving controller.
//
// The supervisor engages before the target's main logic runs. It writes a
// 4-byte hello on the status descriptor; if nobody is listening it disengages
// and the process continues as an ordinary, un-supervised execution. Once
// engaged it blocks waiting for 4-byte go tokens, and for each one either
// forks a fresh child or resumes a suspended one, relaying the child's pid
// and raw wait status back to the controller.
//
// State machine: AwaitHandshake -> AwaitRequest -> ChildRunning ->
// {AwaitRequest | ChildStopped -> AwaitRequest}. In persistent mode the
// child stops itself with SIGSTOP between logical executions; the parent
// observes the stop (WUNTRACED) and resumes it with SIGCONT on the next
// request instead of forking, amortizing process creation across many runs.
//
// Everything here is single-threaded, synchronous, blocking I/O. Any
// handshake failure after the first, and any fork or wait failure, is fatal:
// the controller is gone or the OS is out of resources, and no in-process
// remedy is meaningful.
package forksrv

import (
	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// Server supervises target executions for one controller connection.
//
// The syscall seams (fork, wait, resume, exit) default to the real thing and
// are replaced in tests so the protocol can be scripted without spawning
// processes.
type Server struct {
	ctl int // go tokens in (controller -> target)
	st  int // hello/pid/status out (target -> controller)

	persistent bool

	childPID     int
	childStopped bool

	fork   func() (int, error)
	wait   func(pid int, untraced bool) (unix.WaitStatus, error)
	resume func(pid int) error
	exit   func(code int)
}

// New returns a supervisor on the well-known handshake descriptors.
func New(persistent bool) *Server {
	return &Server{
		ctl:        defs.CtlFD,
		st:         defs.StFD,
		persistent: persistent,
		fork:       forkProcess,
		wait:       waitChild,
		resume:     resumeChild,
		exit:       unix.Exit,
	}
}

// Run drives the supervisor loop. It returns in exactly two situations: the
// initial hello write failed (no controller attached; the caller continues
// un-supervised), or this is a freshly forked child with the handshake
// descriptors closed (the caller is the instrumented target resuming from
// wherever init left off). The supervising parent never returns; it loops
// until the controller closes the pipe, then exits.
func (s *Server) Run() {
	if !s.writeWord(0) {
		// No controller on the other end. Compatibility fallback for
		// running the target outside the fuzzing harness.
		return
	}

	for {
		wasKilled, ok := s.readWord()
		if !ok {
			s.exit(1)
			return
		}

		// The controller may have killed the stopped child itself and
		// told us via the token; write off the old process before
		// falling through to a fresh fork.
		if s.childStopped && wasKilled != 0 {
			s.childStopped = false
			if _, err := s.wait(s.childPID, false); err != nil {
				s.exit(1)
				return
			}
		}

		if s.childStopped {
			// Persistent-mode fast path: the child is alive but
			// suspended, restart it instead of forking.
			if err := s.resume(s.childPID); err != nil {
				s.exit(1)
				return
			}
			s.childStopped = false
		} else {
			pid, err := s.fork()
			if err != nil {
				s.exit(1)
				return
			}
			if pid == 0 {
				// Child: drop the handshake descriptors and hand
				// control back to target code.
				unix.Close(s.ctl)
				unix.Close(s.st)
				return
			}
			s.childPID = pid
		}

		if !s.writeWord(uint32(s.childPID)) {
			s.exit(1)
			return
		}

		status, err := s.wait(s.childPID, s.persistent)
		if err != nil {
			s.exit(1)
			return
		}

		// A self-suspended child signals a completed persistent
		// iteration; keep it around for the next request.
		if status.Stopped() {
			s.childStopped = true
		}

		if !s.writeWord(uint32(status)) {
			s.exit(1)
			return
		}
	}
}

// readWord reads one 4-byte message from the control descriptor. A short
// count or error means the controller is gone.
func (s *Server) readWord() (uint32, bool) {
	var buf [defs.MsgSize]byte
	for {
		n, err := unix.Read(s.ctl, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != defs.MsgSize {
			return 0, false
		}
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, true
	}
}

// writeWord writes one 4-byte message to the status descriptor.
func (s *Server) writeWord(v uint32) bool {
	buf := [defs.MsgSize]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	for {
		n, err := unix.Write(s.st, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err == nil && n == defs.MsgSize
	}
}
