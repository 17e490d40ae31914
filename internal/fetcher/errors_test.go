package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, KindTimeout},
		{"io timeout text", errors.New("read tcp 1.2.3.4:80: i/o timeout"), KindTimeout},
		{"refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"existing", NewHTTPError("u", 429, nil), KindHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Classify("http://example.com", tt.err)
			assert.Equal(t, tt.want, fe.Kind)
		})
	}
	assert.Nil(t, Classify("u", nil))
}

func TestFetchError_Messages(t *testing.T) {
	assert.Equal(t, "http 504 from http://x", NewHTTPError("http://x", 504, nil).Error())

	te := &FetchError{Kind: KindTimeout, URL: "http://x", Err: context.DeadlineExceeded}
	assert.Contains(t, te.Error(), "timeout fetching http://x")
	assert.True(t, errors.Is(te, context.DeadlineExceeded))

	ne := &FetchError{Kind: KindNetwork, URL: "http://x", Err: errors.New("reset")}
	assert.Equal(t, "network error fetching http://x: reset", ne.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, KindHTTP, KindOf(fmt.Errorf("wrapped: %w", NewHTTPError("u", 500, nil))))
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "http", KindHTTP.String())
	assert.Equal(t, "network", KindNetwork.String())
}
