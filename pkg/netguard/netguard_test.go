package netguard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"
)

// TestParseNetwork はCIDR一覧の解析を検証する。
func TestParseNetwork(t *testing.T) {
	t.Parallel()

	t.Run("複数のCIDRを解析できること", func(t *testing.T) {
		t.Parallel()

		n, err := ParseNetwork(" 10.0.0.0/16, 127.0.0.1/32 ,")
		if err != nil {
			t.Fatalf("ParseNetwork()でエラーが発生: %v", err)
		}
		if n.String() != "10.0.0.0/16,127.0.0.1/32" {
			t.Errorf("String() = %q", n.String())
		}
	})

	t.Run("不正なCIDRはエラーになること", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"", " , ", "10.0.0.0/33", "example.com"} {
			if _, err := ParseNetwork(in); err == nil {
				t.Errorf("ParseNetwork(%q)がエラーを返さなかった", in)
			}
		}
	})
}

// TestNetworkContains はアドレスの包含判定を検証する。
func TestNetworkContains(t *testing.T) {
	t.Parallel()

	n, err := ParseNetwork("10.0.0.0/16")
	if err != nil {
		t.Fatalf("ParseNetwork()でエラーが発生: %v", err)
	}

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "10.0.12.5", want: true},
		{addr: "10.1.0.1", want: false},
		{addr: "203.0.113.7", want: false},
		{addr: "::ffff:10.0.0.9", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			if got := n.Contains(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

// startServer は制限付きリスナーでHTTPサーバーを起動し、ハンドラの呼び出し有無を記録する。
func startServer(t *testing.T, allowed string) (string, *atomic.Bool) {
	t.Helper()

	n, err := ParseNetwork(allowed)
	if err != nil {
		t.Fatalf("ParseNetwork()でエラーが発生: %v", err)
	}
	ln, err := Listen("tcp", "127.0.0.1:0", n)
	if err != nil {
		t.Fatalf("Listen()でエラーが発生: %v", err)
	}

	var called atomic.Bool
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called.Store(true)
			w.WriteHeader(http.StatusOK)
		}),
		ReadHeaderTimeout: time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return "http://" + ln.Addr().String(), &called
}

// TestListen は許可範囲外からの接続がトランスポート層で拒否されることを検証する。
func TestListen(t *testing.T) {
	t.Parallel()

	t.Run("許可範囲内からの接続は受け付けること", func(t *testing.T) {
		t.Parallel()

		url, called := startServer(t, "127.0.0.0/8")
		resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(url + "/health")
		if err != nil {
			t.Fatalf("リクエストに失敗: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("ステータスコード = %d, want 200", resp.StatusCode)
		}
		if !called.Load() {
			t.Error("ハンドラが呼ばれていない")
		}
	})

	t.Run("許可範囲外からの接続はハンドラに届かないこと", func(t *testing.T) {
		t.Parallel()

		url, called := startServer(t, "10.0.0.0/16")
		resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			t.Fatal("許可範囲外からのリクエストが成功した")
		}
		if called.Load() {
			t.Error("許可範囲外からのリクエストでハンドラが呼ばれた")
		}
	})
}

// TestDialer は宛先制限付きダイアラーを検証する。
func TestDialer(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	t.Run("許可範囲内の宛先には接続できること", func(t *testing.T) {
		t.Parallel()

		n, _ := ParseNetwork("127.0.0.0/8")
		conn, err := (&Dialer{Network: n, Timeout: time.Second}).DialContext(context.Background(), "tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("DialContext()でエラーが発生: %v", err)
		}
		conn.Close()
	})

	t.Run("許可範囲外の宛先には接続しないこと", func(t *testing.T) {
		t.Parallel()

		n, _ := ParseNetwork("10.0.0.0/16")
		_, err := (&Dialer{Network: n, Timeout: time.Second}).DialContext(context.Background(), "tcp", ln.Addr().String())
		if !errors.Is(err, ErrOutsideNetwork) {
			t.Errorf("error = %v, want ErrOutsideNetwork", err)
		}
	})
}
