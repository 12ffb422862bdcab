package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "default level when empty", level: "", wantErr: false},
		{name: "debug level", level: "debug", wantErr: false},
		{name: "warn level", level: "warn", wantErr: false},
		{name: "unknown level", level: "loud", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New("test", tc.level)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("hello")
		})
	}
}
