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

// Package secrets resolves the *_ref fields of the core configuration.
// Values live in the OS vault; headless hosts may export SGICH_SECRET_<REF>.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	ServiceName = "sgich-core"
	envPrefix   = "SGICH_SECRET_"
)

var ErrSecretNotFound = errors.New("secret not found")

// Resolver looks secrets up by reference name.
type Resolver interface {
	Resolve(ref string) (string, error)
}

// KeyringResolver reads the vault first and the environment second.
type KeyringResolver struct {
	service string
	getenv  func(string) string
}

func NewKeyringResolver() *KeyringResolver {
	return &KeyringResolver{service: ServiceName, getenv: os.Getenv}
}

// EnvName is the fallback variable consulted for ref.
func EnvName(ref string) string {
	var b strings.Builder

	b.WriteString(envPrefix)

	for _, r := range strings.ToUpper(ref) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	return b.String()
}

func (k *KeyringResolver) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrSecretNotFound)
	}

	value, err := keyring.Get(k.service, ref)
	if err == nil && value != "" {
		return value, nil
	}

	if v := k.getenv(EnvName(ref)); v != "" {
		return v, nil
	}

	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("read secret %q: %w", ref, err)
	}

	return "", fmt.Errorf("%w: %q (vault service %s or %s)", ErrSecretNotFound, ref, k.service, EnvName(ref))
}

// Store writes value into the vault under ref.
func Store(ref, value string) error {
	if err := keyring.Set(ServiceName, ref, value); err != nil {
		return fmt.Errorf("store secret %q: %w", ref, err)
	}

	return nil
}
