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

// Package lifecycle builds the component loggers handed out by the binaries.
package lifecycle

import (
	"github.com/sgich/assetradar/pkg/logger"
)

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	zl, err := logger.New(config)
	if err != nil {
		return nil, err
	}

	return logger.Wrap(zl.With().Str("component", component).Logger()), nil
}

// Child derives a component logger that shares l's output and level.
func Child(l logger.Logger, component string) logger.Logger {
	return logger.Wrap(l.WithComponent(component))
}
