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

package agentconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/sgich/assetradar/pkg/logger"
)

const (
	autostartName  = "sgich-scan-agent"
	launchAgentID  = "com.sgich.scan-agent"
	autostartPerms = 0o644
)

var desktopEntry = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=SGICH Scan Agent
Exec="{{.Exe}}"
X-GNOME-Autostart-enabled=true
NoDisplay=true
`))

var launchAgent = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exe}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`))

// autostartFile returns where and what to write for goos. Windows uses the
// registry instead and gets an empty path.
func autostartFile(goos, home, exe string) (string, []byte, error) {
	data := struct{ Exe, Label string }{Exe: exe, Label: launchAgentID}

	var (
		path string
		tmpl *template.Template
	)

	switch goos {
	case "windows":
		return "", nil, nil
	case "darwin":
		path = filepath.Join(home, "Library", "LaunchAgents", launchAgentID+".plist")
		tmpl = launchAgent
	default:
		path = filepath.Join(home, ".config", "autostart", autostartName+".desktop")
		tmpl = desktopEntry
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", nil, err
	}

	return path, buf.Bytes(), nil
}

func writeAutostartFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, content, autostartPerms)
}

// InstallAutostart registers the running executable to start at login.
// Failures are logged and never stop the agent.
func InstallAutostart(log logger.Logger) {
	exe, err := os.Executable()
	if err != nil {
		log.Warn().Err(err).Msg("Autostart skipped: executable path unknown")
		return
	}

	if err := installAutostart(exe); err != nil {
		log.Warn().Err(fmt.Errorf("install autostart: %w", err)).Str("exe", exe).Msg("Autostart not installed")
		return
	}

	log.Info().Str("exe", exe).Msg("Autostart installed")
}
