package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/rickgao/hxsocket/internal/config"
)

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" send, #b2 ,,")
	if want := []string{"send", "b2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("splitIDs = %v, want %v", got, want)
	}
	if got := splitIDs(""); got != nil {
		t.Errorf("splitIDs(\"\") = %v, want nil", got)
	}
}

func TestClientConfig(t *testing.T) {
	cc := clientConfig(config.SocketConfig{
		HandshakeTimeout: time.Second,
		PingInterval:     2 * time.Second,
		Headers:          map[string]string{"origin": "https://example.test"},
		Subprotocols:     []string{"hx"},
	})

	if cc.HandshakeTimeout != time.Second || cc.PingInterval != 2*time.Second {
		t.Errorf("timeouts = %+v", cc)
	}
	if got := cc.Header.Get("Origin"); got != "https://example.test" {
		t.Errorf("Origin header = %q", got)
	}
	if !reflect.DeepEqual(cc.Subprotocols, []string{"hx"}) {
		t.Errorf("Subprotocols = %v", cc.Subprotocols)
	}
}
