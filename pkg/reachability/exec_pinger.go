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
	"net/netip"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sgich/assetradar/pkg/models"
)

var (
	ErrInvalidAddress = errors.New("invalid address")

	rttPattern = regexp.MustCompile(`(?i)time[=<]\s*([0-9.]+)\s*ms`)
)

// ExecPinger runs the platform ping binary once per probe.
type ExecPinger struct {
	goos    string
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

var _ Pinger = (*ExecPinger)(nil)

func NewExecPinger() *ExecPinger {
	return &ExecPinger{goos: runtime.GOOS, command: exec.CommandContext}
}

// pingArgs returns the single-echo invocation for goos. No wait flag is
// passed: the probe timeout is enforced by killing the process, so a host
// that never answers is told apart from one that is refused.
func pingArgs(goos string, addr netip.Addr) (string, []string) {
	switch goos {
	case "windows":
		if addr.Is6() {
			return "ping", []string{"-n", "1", "-6", addr.String()}
		}

		return "ping", []string{"-n", "1", addr.String()}
	case "darwin", "freebsd", "openbsd", "netbsd":
		if addr.Is6() {
			return "ping6", []string{"-c", "1", addr.String()}
		}

		return "ping", []string{"-c", "1", addr.String()}
	default:
		if addr.Is6() {
			return "ping", []string{"-6", "-c", "1", addr.String()}
		}

		return "ping", []string{"-c", "1", addr.String()}
	}
}

// classify maps a finished ping run to a connection status: a reply with a
// TTL is online, any other completed run is offline.
func classify(output []byte) Result {
	text := string(output)
	if !strings.Contains(strings.ToLower(text), "ttl=") && !strings.Contains(strings.ToLower(text), "hlim=") {
		return Result{Status: models.ConnectionOffline}
	}

	res := Result{Status: models.ConnectionOnline}

	if m := rttPattern.FindStringSubmatch(text); m != nil {
		if ms, err := strconv.ParseFloat(m[1], 64); err == nil {
			res.RTT = time.Duration(ms * float64(time.Millisecond))
		}
	}

	return res
}

func (p *ExecPinger) Ping(ctx context.Context, addr string, timeout time.Duration) (Result, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return Result{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, addr, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := pingArgs(p.goos, ip)
	out, err := p.command(runCtx, name, args...).CombinedOutput()

	var exitErr *exec.ExitError

	switch {
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Result{Status: models.ConnectionUnreachable}, nil
	case errors.As(err, &exitErr):
		return Result{Status: models.ConnectionOffline}, nil
	case err != nil:
		return Result{}, fmt.Errorf("run %s: %w", name, err)
	default:
		return classify(out), nil
	}
}
