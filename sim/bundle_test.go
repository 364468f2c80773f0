package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPolicyConfigs_ValidYAML(t *testing.T) {
	path := writeTempYAML(t, `
policies:
  - name: fifo
  - name: easy
  - name: balancing
    threshold: 1.05
    ranks_threshold: 1.1
    aging:
      threshold: 3
      time_step: 60
`)

	policies, err := LoadPolicyConfigs(path)

	require.NoError(t, err)
	require.Len(t, policies, 3)
	assert.Equal(t, "easy", policies[1].Name)
	b := policies[2]
	assert.Equal(t, 1.05, *b.Threshold)
	assert.Equal(t, 1.1, *b.RanksThreshold)
	assert.Equal(t, AgingPolicy{Threshold: 3, TimeStep: 60}, b.agingPolicy())
}

func TestLoadPolicyConfigs_UnknownField_ReturnsError(t *testing.T) {
	path := writeTempYAML(t, `
policies:
  - name: ranks
    treshold: 1.1
`)

	_, err := LoadPolicyConfigs(path)

	assert.Error(t, err)
}

func TestLoadPolicyConfigs_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadPolicyConfigs(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPolicyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PolicyConfig
		wantErr bool
	}{
		{"default", PolicyConfig{}, false},
		{"unknown", PolicyConfig{Name: "sjf"}, true},
		{"fifo with threshold", PolicyConfig{Name: "fifo", Threshold: float64Ptr(1.1)}, true},
		{"ranks defaults", PolicyConfig{Name: "ranks"}, false},
		{"non-positive threshold", PolicyConfig{Name: "ranks", Threshold: float64Ptr(0)}, true},
		{"ranks below threshold", PolicyConfig{Name: "ranks", Threshold: float64Ptr(1.2), RanksThreshold: float64Ptr(1.1)}, true},
		{"ranks follows threshold", PolicyConfig{Name: "random", Threshold: float64Ptr(1.2)}, false},
		{"zero aging step", PolicyConfig{Name: "ranks", Aging: &AgingConfig{Threshold: 2}}, true},
		{"zero aging threshold", PolicyConfig{Name: "ranks", Aging: &AgingConfig{TimeStep: 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyConfig_Defaults(t *testing.T) {
	p := PolicyConfig{Threshold: float64Ptr(1.3)}
	assert.Equal(t, "fifo", p.DisplayName())
	assert.Equal(t, 1.3, p.ranksThreshold())
	assert.Equal(t, 1.0, PolicyConfig{}.threshold())
	assert.False(t, PolicyConfig{}.agingPolicy().Enabled())
}

func TestValidSchedulerNames_SortedWithoutEmpty(t *testing.T) {
	names := ValidSchedulerNames()

	assert.NotContains(t, names, "")
	assert.Contains(t, names, "random-no-mg")
	for i := 1; i < len(names); i++ {
		assert.True(t, names[i-1] < names[i], "names must be sorted: %q >= %q", names[i-1], names[i])
	}
}
