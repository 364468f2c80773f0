package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/cpuset"
)

func TestNewHost_NumbersCoresConsecutively(t *testing.T) {
	h := NewHost("host1", SocketLayout{2, 2}, 5)

	assert.Equal(t, HostIdle, h.Status)
	assert.Equal(t, 4, h.TotalCores())
	assert.Equal(t, 4, h.FreeCores())
	assert.True(t, h.Capacity[0].Equals(cpuset.New(5, 6)))
	assert.True(t, h.Capacity[1].Equals(cpuset.New(7, 8)))
}

func TestHost_ClaimRelease_RestoresFreeCores(t *testing.T) {
	// GIVEN an idle host
	h := NewHost("host0", SocketLayout{4, 4}, 1)

	// WHEN a job claims half of each socket
	cores := h.Take(SocketLayout{2, 2})
	require.NoError(t, h.Claim("0:a", cores))

	// THEN the host is allocated and the cores are no longer free
	assert.Equal(t, HostAllocated, h.Status)
	assert.Equal(t, 4, h.FreeCores())
	assert.True(t, h.Fits(SocketLayout{2, 2}))
	assert.False(t, h.Fits(SocketLayout{4, 4}))
	require.NoError(t, h.CheckInvariants())

	// WHEN the job releases
	require.NoError(t, h.Release("0:a"))

	// THEN exactly the held cores are returned
	assert.Equal(t, HostIdle, h.Status)
	assert.Equal(t, 8, h.FreeCores())
	assert.True(t, h.Sockets[0].Equals(h.Capacity[0]))
	require.NoError(t, h.CheckInvariants())
}

func TestHost_Claim_BusyCores_ReturnsError(t *testing.T) {
	h := NewHost("host0", SocketLayout{2, 2}, 1)
	cores := h.Take(SocketLayout{1, 1})
	require.NoError(t, h.Claim("0:a", cores))

	err := h.Claim("1:b", cores)

	assert.Error(t, err)
	assert.Equal(t, []string{"0:a"}, h.Signatures())
}

func TestHost_Claim_SameSignatureTwice_ReturnsError(t *testing.T) {
	h := NewHost("host0", SocketLayout{2, 2}, 1)
	require.NoError(t, h.Claim("0:a", h.Take(SocketLayout{1, 1})))

	assert.Error(t, h.Claim("0:a", h.Take(SocketLayout{1, 1})))
}

func TestHost_Release_UnknownJob_ReturnsError(t *testing.T) {
	h := NewHost("host0", SocketLayout{2, 2}, 1)
	assert.Error(t, h.Release("7:x"))
}

func TestHost_Fits_WrongSocketCount_ReturnsFalse(t *testing.T) {
	h := NewHost("host0", SocketLayout{2, 2}, 1)
	assert.False(t, h.Fits(SocketLayout{4}))
}

func TestHost_CheckInvariants_DetectsLeakedCores(t *testing.T) {
	// GIVEN a host whose free set lost a core without an owner
	h := NewHost("host0", SocketLayout{2, 2}, 1)
	h.Sockets[0] = cpuset.New(1)

	// THEN the conservation check fails
	assert.Error(t, h.CheckInvariants())
}

func TestSocketLayout_HalfAndSum(t *testing.T) {
	l := SocketLayout{10, 10}
	assert.Equal(t, 20, l.Sum())
	assert.Equal(t, SocketLayout{5, 5}, l.Half())
	assert.True(t, l.Half().Equal(SocketLayout{5, 5}))
	assert.False(t, l.Equal(SocketLayout{10}))
}
