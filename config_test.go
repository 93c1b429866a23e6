package physis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, string(TargetReference), cfg.GetString("backend.target"))
	assert.False(t, cfg.GetBool("mpi_cuda.multistream_boundary"))
	assert.Equal(t, 1, cfg.GetInt("halo.irregular_max_offset"))
	assert.Equal(t, 64, cfg.GetInt("cuda.block_x"))
	assert.True(t, cfg.GetBool("optimizer.unconditional_get"))
}

func TestConfigTarget(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, TargetReference, cfg.Target())

	cfg.SetString("backend.target", string(TargetMPICUDA))
	assert.Equal(t, TargetMPICUDA, cfg.Target())
}

func TestConfigSetOverwritesSameType(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("optimizer.unconditional_get", false)
	assert.False(t, cfg.GetBool("optimizer.unconditional_get"))
}

func TestConfigGetWrongTypePanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetInt("backend.target") })
}

func TestConfigGetMissingPanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetBool("does.not.exist") })
}

func TestBackendFromTarget(t *testing.T) {
	cases := []struct {
		target BackendTarget
		want   Backend
	}{
		{TargetReference, BackendReference},
		{TargetCUDA, BackendCUDA},
		{TargetMPI, BackendMPI},
		{TargetMPICUDA, BackendMPICUDA},
		{BackendTarget("garbage"), BackendReference},
	}
	for _, c := range cases {
		require.Equal(t, c.want, BackendFromTarget(c.target), "target %q", c.target)
	}
}
