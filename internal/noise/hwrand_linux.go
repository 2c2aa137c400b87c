//go:build linux

package noise

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// ReadHW fills buf from the operating system generator without blocking.
func ReadHW(buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Getrandom(buf, unix.GRND_NONBLOCK)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// DeviceSeed returns host identification mixed into the pool at startup, without credit.
func DeviceSeed() []byte {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil
	}
	return bytes.Join([][]byte{
		uts.Sysname[:], uts.Nodename[:], uts.Release[:], uts.Version[:], uts.Machine[:],
	}, nil)
}
