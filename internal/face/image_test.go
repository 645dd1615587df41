package face

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeImage(t *testing.T) {
	raw := []byte("fake-image-bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantExt string
		wantErr bool
	}{
		{
			name:    "raw base64 defaults to jpg",
			input:   encoded,
			wantExt: "jpg",
		},
		{
			name:    "jpeg data URL",
			input:   "data:image/jpeg;base64," + encoded,
			wantExt: "jpg",
		},
		{
			name:    "png data URL",
			input:   "data:image/png;base64," + encoded,
			wantExt: "png",
		},
		{
			name:    "unsupported type",
			input:   "data:image/gif;base64," + encoded,
			wantErr: true,
		},
		{
			name:    "malformed data URL",
			input:   "data:image/jpeg;base64",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			input:   "not base64!!!",
			wantErr: true,
		},
		{
			name:    "empty payload",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ext, err := DecodeImage(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, raw, got)
			require.Equal(t, tt.wantExt, ext)
		})
	}
}
