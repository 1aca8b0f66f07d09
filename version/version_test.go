package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr bool
	}{
		{name: "standard version", input: "1.2.3", want: Version{Major: 1, Minor: 2, Patch: 3}},
		{name: "zero version", input: "0.0.0", want: Version{}},
		{name: "leading v", input: "v2.1.0", want: Version{Major: 2, Minor: 1, Patch: 0}},
		{name: "too few components", input: "1.2", wantErr: true},
		{name: "too many components", input: "1.2.3.4", wantErr: true},
		{name: "non-numeric component", input: "1.x.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestVersion_String(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	require.Equal(t, "1.2.3", v.String())

	parsed, err := Parse(v.String())
	require.NoError(t, err)
	require.Equal(t, v, parsed)
}

func TestVersion_Compatible(t *testing.T) {
	tests := []struct {
		name       string
		v1         Version
		v2         Version
		compatible bool
	}{
		{name: "same major version", v1: Version{Major: 1, Minor: 2, Patch: 3}, v2: Version{Major: 1, Minor: 3, Patch: 0}, compatible: true},
		{name: "different major version", v1: Version{Major: 1}, v2: Version{Major: 2}, compatible: false},
		{name: "exact same version", v1: Version{Major: 3, Minor: 5, Patch: 7}, v2: Version{Major: 3, Minor: 5, Patch: 7}, compatible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.compatible, tt.v1.Compatible(tt.v2))
			require.Equal(t, tt.compatible, tt.v2.Compatible(tt.v1))
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		name     string
		v1       Version
		v2       Version
		expected int
	}{
		{name: "v1 < v2 (major)", v1: Version{Major: 1}, v2: Version{Major: 2}, expected: -1},
		{name: "v1 > v2 (major)", v1: Version{Major: 3}, v2: Version{Major: 2}, expected: 1},
		{name: "v1 < v2 (minor)", v1: Version{Major: 1, Minor: 2}, v2: Version{Major: 1, Minor: 3}, expected: -1},
		{name: "v1 < v2 (patch)", v1: Version{Major: 1, Minor: 2, Patch: 3}, v2: Version{Major: 1, Minor: 2, Patch: 4}, expected: -1},
		{name: "equal versions", v1: Version{Major: 2, Minor: 5, Patch: 8}, v2: Version{Major: 2, Minor: 5, Patch: 8}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.v1.Compare(tt.v2)
			require.Equal(t, tt.expected, result)
			require.Equal(t, -tt.expected, tt.v2.Compare(tt.v1))
			require.Equal(t, tt.expected < 0, tt.v1.Before(tt.v2))
		})
	}
}

func TestCurrent(t *testing.T) {
	current := Current()
	require.Equal(t, Version{Major: 1, Minor: 0, Patch: 0}, current)
	require.Equal(t, current, Current())
}

func TestVersionTransitivity(t *testing.T) {
	v1 := Version{Major: 1}
	v2 := Version{Major: 2}
	v3 := Version{Major: 3}

	require.Equal(t, -1, v1.Compare(v2))
	require.Equal(t, -1, v2.Compare(v3))
	require.Equal(t, -1, v1.Compare(v3))
}

func TestVersionOrdering(t *testing.T) {
	versions := []Version{
		{Major: 1, Minor: 0, Patch: 0},
		{Major: 1, Minor: 0, Patch: 1},
		{Major: 1, Minor: 1, Patch: 0},
		{Major: 1, Minor: 1, Patch: 1},
		{Major: 2, Minor: 0, Patch: 0},
	}

	for i := 0; i < len(versions)-1; i++ {
		require.True(t, versions[i].Before(versions[i+1]),
			"version %s should be before %s", versions[i], versions[i+1])
	}
}

func TestVersionReflexivity(t *testing.T) {
	v := Version{Major: 5, Minor: 4, Patch: 3}

	require.Equal(t, 0, v.Compare(v))
	require.True(t, v.Compatible(v))
	require.False(t, v.Before(v))
}

func BenchmarkVersion_String(b *testing.B) {
	v := Version{Major: 1, Minor: 2, Patch: 3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.String()
	}
}

func BenchmarkVersion_Compatible(b *testing.B) {
	v1 := Version{Major: 1, Minor: 2, Patch: 3}
	v2 := Version{Major: 1, Minor: 3, Patch: 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v1.Compatible(v2)
	}
}

func BenchmarkVersion_Compare(b *testing.B) {
	v1 := Version{Major: 1, Minor: 2, Patch: 3}
	v2 := Version{Major: 2, Minor: 1, Patch: 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v1.Compare(v2)
	}
}

func BenchmarkCurrent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Current()
	}
}
