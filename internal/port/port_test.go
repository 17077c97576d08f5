package port

import (
	stderrors "errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

// busy returns a Checker reporting the given ports as in use.
func busy(ports ...int) (Checker, *[]int) {
	taken := make(map[int]bool, len(ports))
	for _, p := range ports {
		taken[p] = true
	}
	var tried []int
	return func(port int) error {
		tried = append(tried, port)
		if taken[port] {
			return ErrAddressInUse
		}
		return nil
	}, &tried
}

func TestScan_SkipsBusyPorts(t *testing.T) {
	check, tried := busy(8005, 8006, 8007)

	got, err := Scan(check, 8005, 8000, 8010)
	require.NoError(t, err)
	assert.Equal(t, 8008, got)
	assert.Equal(t, []int{8005, 8006, 8007, 8008}, *tried)
}

func TestScan_BelowMinRestartsAtMin(t *testing.T) {
	check, _ := busy()
	got, err := Scan(check, 10, 8000, 8010)
	require.NoError(t, err)
	assert.Equal(t, 8000, got)
}

func TestScan_Exhausted(t *testing.T) {
	check, tried := busy(8000, 8001, 8002)

	_, err := Scan(check, 8000, 8000, 8002)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrRangeExhausted))
	assert.True(t, errors.HasCategory(err, errors.CategoryPort))
	assert.Contains(t, err.Error(), "8000-8002")
	assert.Len(t, *tried, 3)
}

func TestScan_AboveMax(t *testing.T) {
	check, tried := busy()
	_, err := Scan(check, 9000, 8000, 8010)
	assert.ErrorIs(t, err, ErrRangeExhausted)
	assert.Empty(t, *tried)
}

func TestScan_UnrelatedErrorStops(t *testing.T) {
	boom := stderrors.New("permission denied")
	calls := 0
	check := func(port int) error {
		calls++
		if port == 8001 {
			return boom
		}
		return ErrAddressInUse
	}

	_, err := Scan(check, 8000, 8000, 8010)
	assert.ErrorIs(t, err, boom)
	assert.False(t, stderrors.Is(err, ErrRangeExhausted))
	assert.Equal(t, 2, calls)
}

func TestAllocate(t *testing.T) {
	check, _ := busy()
	got, err := Allocate(check, 8500, 8000, 8999)
	require.NoError(t, err)
	assert.Equal(t, 8500, got)

	check, tried := busy(8500, 8000)
	got, err = Allocate(check, 8500, 8000, 8999)
	require.NoError(t, err)
	assert.Equal(t, 8001, got)
	assert.Equal(t, []int{8500, 8000, 8001}, *tried)
}

func TestCheck_RealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	taken := ln.Addr().(*net.TCPAddr).Port
	assert.ErrorIs(t, Check("127.0.0.1", taken), ErrAddressInUse)

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	free := ln2.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln2.Close())
	assert.NoError(t, Listener("127.0.0.1")(free))
}
