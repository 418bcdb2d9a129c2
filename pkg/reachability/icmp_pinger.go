/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reachability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/sgich/assetradar/pkg/models"
)

const (
	defaultIdentifierMod = 65536
	icmpProtocolIPv4     = 1
	readBufferSize       = 1500
)

var ErrIPv6Unsupported = errors.New("icmp pinger handles IPv4 only")

// ICMPPinger speaks ICMP directly. On Linux and macOS it uses unprivileged
// datagram sockets; elsewhere it needs a raw socket.
type ICMPPinger struct {
	identifier int
	seq        atomic.Uint32
}

var _ Pinger = (*ICMPPinger)(nil)

func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{identifier: int((int64(os.Getpid()) + time.Now().UnixNano()) % defaultIdentifierMod)}
}

func listenNetwork() (string, bool) {
	switch runtime.GOOS {
	case "linux", "darwin":
		return "udp4", true
	default:
		return "ip4:icmp", false
	}
}

func echoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("assetradar")},
	}

	return msg.Marshal(nil)
}

// replyStatus classifies a parsed reply. ok is false for packets that do
// not answer this probe.
func replyStatus(msg *icmp.Message, seq int, unprivileged bool, id int) (models.ConnectionStatus, bool) {
	switch msg.Type {
	case ipv4.ICMPTypeEchoReply:
		echo, isEcho := msg.Body.(*icmp.Echo)
		if !isEcho || echo.Seq != seq {
			return "", false
		}

		// the kernel rewrites the identifier of datagram sockets
		if !unprivileged && echo.ID != id {
			return "", false
		}

		return models.ConnectionOnline, true
	case ipv4.ICMPTypeDestinationUnreachable, ipv4.ICMPTypeTimeExceeded:
		return models.ConnectionOffline, true
	default:
		return "", false
	}
}

func (p *ICMPPinger) Ping(ctx context.Context, addr string, timeout time.Duration) (Result, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return Result{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, addr, err)
	}

	if !ip.Is4() {
		return Result{}, ErrIPv6Unsupported
	}

	network, unprivileged := listenNetwork()

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create ICMP listener: %w", err)
	}
	defer func() { _ = conn.Close() }()

	seq := int(p.seq.Add(1) & 0xffff)

	data, err := echoRequest(p.identifier, seq)
	if err != nil {
		return Result{}, err
	}

	var dst net.Addr = &net.IPAddr{IP: net.IP(ip.AsSlice())}
	if unprivileged {
		dst = &net.UDPAddr{IP: net.IP(ip.AsSlice())}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return Result{}, err
	}

	start := time.Now()

	if _, err := conn.WriteTo(data, dst); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return Result{Status: models.ConnectionOffline}, nil
		}

		return Result{}, fmt.Errorf("send echo to %s: %w", addr, err)
	}

	buf := make([]byte, readBufferSize)

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if ctx.Err() != nil {
					return Result{}, ctx.Err()
				}

				return Result{Status: models.ConnectionUnreachable}, nil
			}

			return Result{}, fmt.Errorf("read reply from %s: %w", addr, err)
		}

		msg, err := icmp.ParseMessage(icmpProtocolIPv4, buf[:n])
		if err != nil {
			continue
		}

		status, ok := replyStatus(msg, seq, unprivileged, p.identifier)
		if !ok {
			continue
		}

		if status != models.ConnectionOnline {
			return Result{Status: status}, nil
		}

		return Result{Status: status, RTT: time.Since(start)}, nil
	}
}
