//go:build !linux

package noise

import (
	"crypto/rand"
	"os"
)

// ReadHW fills buf from the operating system generator without blocking.
func ReadHW(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

// DeviceSeed returns host identification mixed into the pool at startup, without credit.
func DeviceSeed() []byte {
	name, err := os.Hostname()
	if err != nil {
		return nil
	}
	return []byte(name)
}
