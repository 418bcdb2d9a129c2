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

package scheduler

import "fmt"

// Cycle stages.
const (
	StageConnect      = "test_connection"
	StageCapabilities = "capabilities"
	StageCollect      = "collect"
	StageSubmit       = "submit"
)

// CycleError says which stage of a cycle failed.
type CycleError struct {
	Stage        string
	UniqueID     string
	PayloadBytes int
	Err          error
}

func (e *CycleError) Error() string {
	if e.UniqueID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Stage, e.UniqueID, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
