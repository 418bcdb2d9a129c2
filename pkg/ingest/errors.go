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

package ingest

import (
	"errors"
	"fmt"
)

var (
	errNoToken       = errors.New("session answer carried no token")
	errEmptyUniqueID = errors.New("snapshot has no unique_id")
	errNilSnapshot   = errors.New("snapshot is nil")
)

// TransportError means the server could not be reached or failed on its
// side. The request may be retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerRejection is a 4xx answer. Resending the same request will not help.
type ServerRejection struct {
	Method string
	URL    string
	Status int
	Detail string
}

func (e *ServerRejection) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s rejected with %d", e.Method, e.URL, e.Status)
	}

	return fmt.Sprintf("%s %s rejected with %d: %s", e.Method, e.URL, e.Status, e.Detail)
}

// IsRejection reports whether err carries a ServerRejection.
func IsRejection(err error) bool {
	var rej *ServerRejection

	return errors.As(err, &rej)
}
