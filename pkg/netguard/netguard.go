package netguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

// ErrOutsideNetwork はアドレスが許可されたネットワーク外であることを表す。
var ErrOutsideNetwork = errors.New("プライベートネットワーク外のアドレスです")

// Network は許可されたアドレス範囲の集合。
type Network struct {
	prefixes []netip.Prefix
}

// ParseNetwork はカンマ区切りのCIDR表記から Network を生成する。
// 例: "10.0.0.0/16,127.0.0.1/32"
func ParseNetwork(cidrs string) (Network, error) {
	var prefixes []netip.Prefix
	for _, raw := range strings.Split(cidrs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return Network{}, fmt.Errorf("CIDRの形式が不正です %q: %w", raw, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	if len(prefixes) == 0 {
		return Network{}, errors.New("許可するネットワークが1つもありません")
	}
	return Network{prefixes: prefixes}, nil
}

// Contains はアドレスが許可された範囲に含まれるかを返す。
func (n Network) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range n.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// String はCIDR表記の一覧を返す。
func (n Network) String() string {
	parts := make([]string, 0, len(n.prefixes))
	for _, p := range n.prefixes {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

// containsNetAddr は net.Addr が許可範囲に含まれるかを返す。
func (n Network) containsNetAddr(a net.Addr) bool {
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return false
	}
	return n.Contains(ap.Addr())
}

// listener は許可範囲外からの接続を切断する net.Listener。
type listener struct {
	net.Listener
	network Network
}

// Listen は許可範囲外からの接続を受け付けないリスナーを生成する。
func Listen(network, addr string, allowed Network) (net.Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("リッスンに失敗: %w", err)
	}
	return Wrap(ln, allowed), nil
}

// Wrap は既存のリスナーを許可範囲で制限する。
func Wrap(ln net.Listener, allowed Network) net.Listener {
	return &listener{Listener: ln, network: allowed}
}

// Accept は許可範囲内からの接続のみを返す。
// 範囲外の接続は何も読まずに閉じ、次の接続を待つ。
func (l *listener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if l.network.containsNetAddr(conn.RemoteAddr()) {
			return conn, nil
		}
		log.Printf("[netguard] プライベートネットワーク外からの接続を拒否: remote=%s", conn.RemoteAddr())
		_ = conn.Close()
	}
}

// Dialer は許可範囲内の宛先にのみ接続する。
type Dialer struct {
	// Network は接続を許可する宛先の範囲。
	Network Network
	// Timeout は接続タイムアウト。
	Timeout time.Duration
}

// DialContext は http.Transport の DialContext として使える。
// 名前解決後のアドレスが許可範囲外の場合は接続しない。
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: d.Timeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("宛先アドレスの解析に失敗 %q: %w", address, err)
			}
			if !d.Network.Contains(ap.Addr()) {
				return fmt.Errorf("%s: %w", address, ErrOutsideNetwork)
			}
			return nil
		},
	}
	return dialer.DialContext(ctx, network, address)
}
