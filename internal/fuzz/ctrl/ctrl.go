//go:build linux

// Package ctrl implements the controller side of the supervisor protocol.
//
// It exists for the cmd/fuzzrt diagnostic tool and for scripted-controller
// tests; the outer search/mutation algorithm that drives a real fuzzing
// campaign is a different subsystem and lives elsewhere. The controller owns
// the feedback map's lifecycle across target process deaths: it creates the
// SysV segment, hands its id to the target through the environment, and
// removes it when done.
//
// Temporal separation discipline: the controller must not read the map for a
// request until it has received that request's status word. Exec enforces
// this by construction.
package ctrl

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
	"github.com/kolkov/fuzzrt/internal/fuzz/region"
)

// Controller drives one supervised target process tree.
type Controller struct {
	shmID int
	reg   *region.Region

	proc *os.Process

	ctl *os.File // go tokens out (fd 198 in the target)
	st  *os.File // hello/pid/status in (fd 199 in the target)

	lastPID int
}

// Launch creates the shared map, spawns the target with the handshake pipe
// ends installed at the well-known descriptors, and waits for the
// supervisor's hello. env entries are appended to the inherited environment.
func Launch(bin string, args []string, persistent bool, env ...string) (*Controller, error) {
	shmID, err := unix.SysvShmGet(unix.IPC_PRIVATE, defs.MapSize, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return nil, fmt.Errorf("shmget: %w", err)
	}
	mem, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("shmat: %w", err)
	}

	c := &Controller{shmID: shmID, reg: region.Wrap(mem)}

	ctlR, ctlW, err := os.Pipe()
	if err != nil {
		c.removeMap()
		return nil, fmt.Errorf("control pipe: %w", err)
	}
	stR, stW, err := os.Pipe()
	if err != nil {
		ctlR.Close()
		ctlW.Close()
		c.removeMap()
		return nil, fmt.Errorf("status pipe: %w", err)
	}
	c.ctl = ctlW
	c.st = stR

	// Install the child ends at the fixed descriptor numbers by padding
	// the fd table; nil entries stay closed in the child, so nothing
	// below 198 leaks besides the standard streams.
	files := make([]*os.File, defs.StFD+1)
	files[0] = os.Stdin
	files[1] = os.Stdout
	files[2] = os.Stderr
	files[defs.CtlFD] = ctlR
	files[defs.StFD] = stW

	environ := append(os.Environ(), fmt.Sprintf("%s=%d", defs.ShmEnv, shmID))
	if persistent {
		environ = append(environ, defs.PersistEnv+"=1")
	}
	environ = append(environ, env...)

	proc, err := os.StartProcess(bin, append([]string{bin}, args...), &os.ProcAttr{
		Env:   environ,
		Files: files,
	})

	// The parent's copies of the child ends must go either way.
	ctlR.Close()
	stW.Close()

	if err != nil {
		c.Close()
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	c.proc = proc

	if _, err := c.readWord(); err != nil {
		c.Close()
		return nil, fmt.Errorf("supervisor handshake: %w", err)
	}
	return c, nil
}

// Exec requests one target execution and returns the child pid and raw wait
// status. prevKilled tells the supervisor that the controller independently
// killed a suspended child, so it must reap before forking fresh.
func (c *Controller) Exec(prevKilled bool) (pid int, status unix.WaitStatus, err error) {
	token := uint32(0)
	if prevKilled {
		token = 1
	}
	if err := c.writeWord(token); err != nil {
		return 0, 0, fmt.Errorf("go token: %w", err)
	}
	p, err := c.readWord()
	if err != nil {
		return 0, 0, fmt.Errorf("pid report: %w", err)
	}
	s, err := c.readWord()
	if err != nil {
		return 0, 0, fmt.Errorf("status report: %w", err)
	}
	c.lastPID = int(p)
	return int(p), unix.WaitStatus(s), nil
}

// Map returns the controller's view of the feedback map. Only valid between
// executions, per the temporal separation discipline.
func (c *Controller) Map() *region.Region {
	return c.reg
}

// ZeroMap clears the map before the next request. Fork-per-run controllers
// do this between executions; persistent children clear it themselves.
func (c *Controller) ZeroMap() {
	c.reg.Zero()
}

// KillChild forcibly terminates the current child. The next Exec must pass
// prevKilled so the supervisor reaps the corpse instead of resuming it.
func (c *Controller) KillChild() error {
	if c.lastPID == 0 {
		return nil
	}
	return unix.Kill(c.lastPID, unix.SIGKILL)
}

// Close tears down the process tree and the shared segment.
func (c *Controller) Close() error {
	if c.ctl != nil {
		c.ctl.Close() // supervisor's next read fails and it exits
	}
	if c.st != nil {
		c.st.Close()
	}
	if c.proc != nil {
		c.proc.Kill()
		c.proc.Wait()
	}
	return c.removeMap()
}

func (c *Controller) removeMap() error {
	if c.reg != nil {
		unix.SysvShmDetach(c.reg.Bytes())
		c.reg = nil
	}
	if c.shmID != 0 {
		_, err := unix.SysvShmCtl(c.shmID, unix.IPC_RMID, nil)
		c.shmID = 0
		return err
	}
	return nil
}

func (c *Controller) readWord() (uint32, error) {
	var buf [defs.MsgSize]byte
	if _, err := readFull(c.st, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (c *Controller) writeWord(v uint32) error {
	var buf [defs.MsgSize]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := c.ctl.Write(buf[:])
	return err
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
