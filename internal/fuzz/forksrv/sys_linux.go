//go:build linux

package forksrv

import "golang.org/x/sys/unix"

// forkProcess clones the current process the way libc fork does:
// clone(SIGCHLD) with no new stack. Returns 0 in the child.
//
// The supervised process is single-threaded by contract, which is what makes
// a bare fork safe here; the clone must not run between operations that hold
// runtime-internal locks, so the supervisor only forks from its own blocked
// request loop.
func forkProcess() (int, error) {
	pid, _, errno := unix.RawSyscall(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(pid), nil
}

// waitChild blocks until the child exits, or also on a stop when untraced is
// set (persistent mode needs to observe the child's self-suspend).
func waitChild(pid int, untraced bool) (unix.WaitStatus, error) {
	var ws unix.WaitStatus
	options := 0
	if untraced {
		options = unix.WUNTRACED
	}
	for {
		_, err := unix.Wait4(pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		return ws, err
	}
}

// resumeChild restarts a self-suspended child.
func resumeChild(pid int) error {
	return unix.Kill(pid, unix.SIGCONT)
}
