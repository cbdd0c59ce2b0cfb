package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTicketButtonValidate(t *testing.T) {
	tests := []struct {
		name    string
		button  TicketButton
		wantErr string
	}{
		{
			name:   "valid",
			button: TicketButton{Label: "Support", Style: ButtonStyleGreen, Category: "support"},
		},
		{
			name:    "missing label",
			button:  TicketButton{Style: ButtonStyleGreen, Category: "support"},
			wantErr: "label is required",
		},
		{
			name:    "missing category",
			button:  TicketButton{Label: "Support", Style: ButtonStyleGreen},
			wantErr: "category is required",
		},
		{
			name:    "unknown style",
			button:  TicketButton{Label: "Support", Style: "orange", Category: "support"},
			wantErr: "unknown button style",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.button.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseClosePolicy(t *testing.T) {
	got, ok := ParseClosePolicy("")
	require.True(t, ok)
	require.Equal(t, ClosePolicyAnyone, got)

	got, ok = ParseClosePolicy("staff")
	require.True(t, ok)
	require.Equal(t, ClosePolicyStaff, got)

	_, ok = ParseClosePolicy("everyone-else")
	require.False(t, ok)
}
