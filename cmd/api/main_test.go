package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "defaults", args: nil, want: options{envFile: ".env"}},
		{
			name: "all flags",
			args: []string{"--env-file", "prod.env", "--migrate", "--seed-coupons"},
			want: options{envFile: "prod.env", migrate: true, seedCoupons: true},
		},
		{name: "unknown flag", args: []string{"--port", "80"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *opts)
		})
	}
}
