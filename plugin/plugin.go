// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package plugin holds what every pluggable check shares: its identity and
// the status it ends a scan pass with.
package plugin

import (
	"fmt"
	"strings"
)

// Plugin identifies a check.
type Plugin interface {
	// A unique name used to identify this plugin.
	Name() string
	// Plugin version, should get bumped whenever major changes are made.
	Version() int
}

// Status is the outcome of one check in a scan pass.
type Status struct {
	Name    string
	Version int
	Status  *ScanStatus
}

// Succeeded reports whether the check handled every event without a fault.
func (s *Status) Succeeded() bool {
	return s != nil && s.Status != nil && s.Status.Status == ScanStatusSucceeded
}

// ScanStatus is the status of a check or of a whole pass. FailureReason is
// set for anything but a clean success.
type ScanStatus struct {
	Status        ScanStatusEnum
	FailureReason string
	EventErrors   []*EventError
}

// EventError is a fault raised by a check while handling one lifecycle event.
// Package is empty for events that aren't package scoped.
type EventError struct {
	Event        string
	Package      string
	ErrorMessage string
}

func (e *EventError) String() string {
	if e.Package == "" {
		return e.Event + ": " + e.ErrorMessage
	}
	return fmt.Sprintf("%s on %s: %s", e.Event, e.Package, e.ErrorMessage)
}

// ScanStatusEnum is the enum for the scan status.
type ScanStatusEnum int

// ScanStatusEnum values.
const (
	ScanStatusUnspecified ScanStatusEnum = iota
	ScanStatusSucceeded
	// ScanStatusPartiallySucceeded marks a check that faulted on some events,
	// or a pass in which checks or packages faulted. Dispatch always goes on
	// after such faults.
	ScanStatusPartiallySucceeded
	// ScanStatusFailed marks a pass that was aborted.
	ScanStatusFailed
	// ScanStatusCancelled marks a pass that was cancelled between packages.
	// The violations collected up to that point are still reported.
	ScanStatusCancelled
)

// FromFaults returns the status of check p given the faults it raised during
// a pass. A check never fails a pass on its own, so any fault makes it
// partially successful.
func FromFaults(p Plugin, faults []*EventError) *Status {
	status := &ScanStatus{Status: ScanStatusSucceeded}
	if len(faults) > 0 {
		status.Status = ScanStatusPartiallySucceeded
		status.EventErrors = faults
		status.FailureReason = faultSummary(faults)
	}
	return &Status{Name: p.Name(), Version: p.Version(), Status: status}
}

// faultSummary names the first fault and counts the rest.
func faultSummary(faults []*EventError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d fault(s)", len(faults))
	b.WriteString(", first: ")
	b.WriteString(faults[0].String())
	return b.String()
}

// String returns a string representation of the scan status.
func (s *ScanStatus) String() string {
	switch s.Status {
	case ScanStatusSucceeded:
		return "SUCCEEDED"
	case ScanStatusPartiallySucceeded:
		return "PARTIALLY_SUCCEEDED"
	case ScanStatusFailed:
		return "FAILED: " + s.FailureReason
	case ScanStatusCancelled:
		return "CANCELLED"
	default:
		return "UNSPECIFIED"
	}
}
