//go:build linux

package wire

import (
	"net"

	"golang.org/x/sys/unix"
)

// PeerCredentials reads the SO_PEERCRED credentials of the process on
// the other end of an AF_LOCAL connection. Returns ok=false for
// non-Unix connections or if the kernel call fails (e.g. conn is a
// net.Pipe in tests, which has no underlying fd).
func PeerCredentials(conn net.Conn) (pid, uid, gid int32, ok bool) {
	uc, isUnix := conn.(*net.UnixConn)
	if !isUnix {
		return 0, 0, 0, false
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return 0, 0, 0, false
	}

	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || credErr != nil || cred == nil {
		return 0, 0, 0, false
	}
	return cred.Pid, int32(cred.Uid), int32(cred.Gid), true
}
