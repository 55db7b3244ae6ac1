package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUserIP(t *testing.T) {
	cases := []struct {
		name          string
		remoteAddr    string
		realIP        string
		forwardedFor  string
		expectedIP    string
		expectedError bool
	}{
		{name: "RemoteAddr", remoteAddr: "83.12.53.65:2145", expectedIP: "83.12.53.65"},
		{name: "RemoteAddrIPv6", remoteAddr: "[::1]:8080", expectedIP: "::1"},
		{name: "RealIP", remoteAddr: "172.20.0.1:60102", realIP: "111.12.56.65", expectedIP: "111.12.56.65"},
		{name: "ForwardedFor", remoteAddr: "172.20.0.1:60102", forwardedFor: "111.12.56.65, 10.0.0.1", expectedIP: "111.12.56.65"},
		{name: "RealIPWins", remoteAddr: "172.20.0.1:60102", realIP: "83.12.53.65", forwardedFor: "111.12.56.65", expectedIP: "83.12.53.65"},
		{name: "Invalid", remoteAddr: "not-an-ip", expectedError: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}
			if tc.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tc.forwardedFor)
			}

			ip, err := ReadUserIP(req)
			if tc.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedIP, ip)
		})
	}
}
