package custom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    HexColor
		wantErr bool
	}{
		{
			name:  "plain",
			input: "4169e1",
			want:  "4169e1",
		},
		{
			name:  "hash prefix",
			input: "#4169e1",
			want:  "4169e1",
		},
		{
			name:  "uppercase normalised",
			input: "#4169E1",
			want:  "4169e1",
		},
		{
			name:    "too short",
			input:   "4169e",
			wantErr: true,
		},
		{
			name:    "not hex",
			input:   "zzzzzz",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHexColorInt(t *testing.T) {
	c, err := ParseHexColor("#4169e1")
	require.NoError(t, err)
	require.Equal(t, 0x4169e1, c.Int())

	require.Equal(t, 0, HexColor("").Int())
}
