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

// Package credentials binds the agent's username to a password held in the
// operating system's credential vault.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the vault service the scan agent's password is filed under.
const ServiceName = "sgich-scan-agent"

var (
	ErrMissingCredential = errors.New("no credential stored for user")
	ErrEmptyUsername     = errors.New("username is empty")
)

// Store reads and writes the agent secret.
type Store interface {
	Get(username string) (string, error)
	Set(username, secret string) error
	Delete(username string) error
}

type Vault struct {
	service string
}

func NewVault() *Vault {
	return &Vault{service: ServiceName}
}

func (v *Vault) Get(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	secret, err := keyring.Get(v.service, username)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && secret == "") {
		return "", fmt.Errorf("%w %q in %s", ErrMissingCredential, username, v.service)
	}

	if err != nil {
		return "", fmt.Errorf("read credential for %q: %w", username, err)
	}

	return secret, nil
}

func (v *Vault) Set(username, secret string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}

	if err := keyring.Set(v.service, username, secret); err != nil {
		return fmt.Errorf("store credential for %q: %w", username, err)
	}

	return nil
}

func (v *Vault) Delete(username string) error {
	err := keyring.Delete(v.service, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete credential for %q: %w", username, err)
	}

	return nil
}
