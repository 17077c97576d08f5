// Package port finds a free TCP port for the dev server.
package port

import (
	stderrors "errors"
	"net"
	"strconv"
	"syscall"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

var (
	// ErrAddressInUse reports a port another process is listening on.
	ErrAddressInUse = stderrors.New("address already in use")

	// ErrRangeExhausted reports that every port in the range is busy.
	ErrRangeExhausted = stderrors.New("port range exhausted")
)

// Checker reports whether a port is free: nil when free, ErrAddressInUse
// when busy, anything else for an unrelated failure.
type Checker func(port int) error

// Listener returns a Checker that binds a throwaway listener on host.
func Listener(host string) Checker {
	return func(port int) error {
		return Check(host, port)
	}
}

// Check binds a listener on host:port and closes it immediately.
func Check(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			return ErrAddressInUse
		}
		return errors.New("E201").WithDetail("port " + strconv.Itoa(port)).Wrap(err)
	}
	return ln.Close()
}

// Scan returns the first free port in [current, max], restarting at min
// when current is below it. Errors other than ErrAddressInUse stop the
// scan and are returned as is.
func Scan(check Checker, current, min, max int) (int, error) {
	if current < min {
		current = min
	}
	for ; current <= max; current++ {
		err := check(current)
		if err == nil {
			return current, nil
		}
		if !stderrors.Is(err, ErrAddressInUse) {
			return 0, err
		}
	}
	return 0, exhausted(min, max)
}

// Allocate tries preferred first and falls back to scanning the whole
// range from min.
func Allocate(check Checker, preferred, min, max int) (int, error) {
	err := check(preferred)
	if err == nil {
		return preferred, nil
	}
	if !stderrors.Is(err, ErrAddressInUse) {
		return 0, err
	}
	return Scan(check, min, min, max)
}

func exhausted(min, max int) error {
	return errors.New("E200").
		WithDetail(strconv.Itoa(min) + "-" + strconv.Itoa(max)).
		WithSuggestion("Stop the processes using these ports or widen server.port in lalilo.json").
		Wrap(ErrRangeExhausted)
}
