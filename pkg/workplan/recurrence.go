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

package workplan

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sgich/assetradar/pkg/models"
)

// Cutoff is the last instant of now's calendar year. No event instance may
// start after it.
func Cutoff(now time.Time) time.Time {
	return time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location())
}

func frequency(f models.Frequency) (rrule.Frequency, error) {
	switch f {
	case models.FreqDaily:
		return rrule.DAILY, nil
	case models.FreqWeekly:
		return rrule.WEEKLY, nil
	case models.FreqMonthly:
		return rrule.MONTHLY, nil
	case models.FreqYearly:
		return rrule.YEARLY, nil
	default:
		return 0, fmt.Errorf("%w: unknown frequency %q", ErrValidation, f)
	}
}

func buildRule(ev *models.WorkplanEvent, cutoff time.Time) (*rrule.RRule, error) {
	freq, err := frequency(ev.Recurrence.Freq)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: ev.Recurrence.Interval,
		Count:    ev.Recurrence.Count,
		Dtstart:  ev.Start,
	}

	if ev.Recurrence.Until != nil {
		opt.Until = *ev.Recurrence.Until
	} else if opt.Count == 0 {
		opt.Until = cutoff
	}

	return rrule.NewRRule(opt)
}

// NormalizeForCreate clamps a recurrence end past the cutoff and bounds an
// open-ended recurrence at it, then validates the event.
func NormalizeForCreate(ev *models.WorkplanEvent, now time.Time) error {
	cutoff := Cutoff(now)

	if r := ev.Recurrence; r != nil {
		if r.Until != nil && r.Until.After(cutoff) {
			r.Until = &cutoff
		}

		if r.Until == nil && r.Count == 0 {
			r.Until = &cutoff
		}
	}

	return Validate(ev, now)
}

// Validate rejects events that reach past the cutoff.
func Validate(ev *models.WorkplanEvent, now time.Time) error {
	cutoff := Cutoff(now)

	if ev.Start.IsZero() || ev.Stop.IsZero() {
		return fmt.Errorf("%w: start and stop are required", ErrValidation)
	}

	if ev.Stop.Before(ev.Start) {
		return fmt.Errorf("%w: stop before start", ErrValidation)
	}

	if ev.Start.After(cutoff) || ev.Stop.After(cutoff) {
		return fmt.Errorf("%w: event ends after %s", ErrRecurrenceOutOfRange, cutoff.Format(time.DateOnly))
	}

	r := ev.Recurrence
	if r == nil {
		return nil
	}

	if r.Interval <= 0 {
		r.Interval = 1
	}

	switch {
	case r.Until != nil && r.Count > 0:
		return fmt.Errorf("%w: recurrence takes either until or count", ErrValidation)
	case r.Until == nil && r.Count <= 0:
		return fmt.Errorf("%w: recurrence has no end", ErrRecurrenceOutOfRange)
	case r.Until != nil && r.Until.After(cutoff):
		return fmt.Errorf("%w: recurrence until %s is after %s", ErrRecurrenceOutOfRange,
			r.Until.Format(time.DateOnly), cutoff.Format(time.DateOnly))
	}

	rule, err := buildRule(ev, cutoff)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if r.Count > 0 {
		all := rule.All()
		if len(all) > 0 && all[len(all)-1].After(cutoff) {
			return fmt.Errorf("%w: %d occurrences run past %s", ErrRecurrenceOutOfRange, r.Count, cutoff.Format(time.DateOnly))
		}
	}

	return nil
}

// Occurrences expands ev into the instances that start within [from, to],
// never past the cutoff of to's year.
func Occurrences(ev *models.WorkplanEvent, from, to time.Time) ([]time.Time, error) {
	cutoff := Cutoff(to)
	if to.After(cutoff) {
		to = cutoff
	}

	if ev.Recurrence == nil {
		if ev.Start.Before(from) || ev.Start.After(to) {
			return nil, nil
		}

		return []time.Time{ev.Start}, nil
	}

	rule, err := buildRule(ev, cutoff)
	if err != nil {
		return nil, err
	}

	return rule.Between(from, to, true), nil
}
