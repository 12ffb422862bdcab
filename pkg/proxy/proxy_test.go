package proxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    Credential
		wantErr bool
	}{
		{
			name: "host and port",
			raw:  "10.0.0.1:8080",
			want: Credential{Host: "10.0.0.1", Port: "8080"},
		},
		{
			name: "host port username password",
			raw:  "10.0.0.1:8080:alice:s3cret",
			want: Credential{Host: "10.0.0.1", Port: "8080", Username: "alice", Password: "s3cret"},
		},
		{
			name:    "single field",
			raw:     "10.0.0.1",
			wantErr: true,
		},
		{
			name:    "three fields",
			raw:     "10.0.0.1:8080:alice",
			wantErr: true,
		},
		{
			name:    "five fields",
			raw:     "10.0.0.1:8080:alice:s3cret:extra",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cred, err := Parse(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				var cfgErr *ConfigError
				assert.True(t, errors.As(err, &cfgErr), "parse failures are ConfigError")
				assert.Equal(t, tc.raw, cfgErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, cred)
		})
	}
}

func TestParseList(t *testing.T) {
	t.Run("parses every entry in order", func(t *testing.T) {
		creds, err := ParseList([]string{"a:1", "b:2:u:p"})
		require.NoError(t, err)
		require.Len(t, creds, 2)
		assert.Equal(t, "a:1", creds[0].Addr())
		assert.True(t, creds[1].Authenticated())
	})

	t.Run("fails on the first bad entry", func(t *testing.T) {
		_, err := ParseList([]string{"a:1", "broken"})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "broken", cfgErr.Raw)
	})
}

func TestCredentialString(t *testing.T) {
	cred := Credential{Host: "10.0.0.1", Port: "8080", Username: "alice", Password: "s3cret"}
	assert.Equal(t, "10.0.0.1:8080", cred.String(), "password never appears in logs")
}

func TestPoolRoundRobin(t *testing.T) {
	creds, err := ParseList([]string{"a:1", "b:2", "c:3"})
	require.NoError(t, err)
	pool := NewPool(creds)

	// One full pass returns each credential exactly once, in order.
	for i := 0; i < pool.Size(); i++ {
		assert.Equal(t, creds[i], pool.Next())
	}

	// The next draw wraps back to the first credential.
	assert.Equal(t, creds[0], pool.Next())
}

func TestPoolEmpty(t *testing.T) {
	pool := NewPool(nil)
	assert.True(t, pool.Empty())
	assert.Equal(t, 0, pool.Size())
}

func TestVerifyNoLeak(t *testing.T) {
	creds, err := ParseList([]string{"a:1", "b:2", "c:3"})
	require.NoError(t, err)
	pool := NewPool(creds)

	t.Run("different ips pass and leave the count alone", func(t *testing.T) {
		count, verr := pool.VerifyNoLeak("203.0.113.7", "198.51.100.2", 2)
		assert.NoError(t, verr)
		assert.Equal(t, 2, count)
	})

	t.Run("leaks are recoverable for one full pass over the pool", func(t *testing.T) {
		count := 0
		for i := 1; i <= pool.Size(); i++ {
			var verr error
			count, verr = pool.VerifyNoLeak("198.51.100.2", "198.51.100.2", count)
			require.Error(t, verr)
			assert.True(t, errors.Is(verr, ErrLeakDetected), "leak %d of %d", i, pool.Size())
			assert.Equal(t, i, count)
		}

		// The next leak exceeds the pool size and is terminal.
		count, verr := pool.VerifyNoLeak("198.51.100.2", "198.51.100.2", count)
		require.Error(t, verr)
		assert.True(t, errors.Is(verr, ErrAllProxiesExhausted))
		assert.Equal(t, pool.Size()+1, count)
	})
}
