// Copyright 2026 The sliverpick Authors
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

// Package sliver defines the read-only data model shared by the selection
// core: sliver tools (addressable backend instances of a named measurement
// tool), the sites that host them, and the per-address-family status used
// to decide whether a tool can serve a client.
//
// Records in this package are created and updated by an external
// registration process. The resolvers never mutate them.
package sliver

// Family identifies an IP address family. The zero value means the family
// was not specified.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Other returns the opposite address family. It returns the receiver
// unchanged for values other than FamilyIPv4 and FamilyIPv6.
func (f Family) Other() Family {
	switch f {
	case FamilyIPv4:
		return FamilyIPv6
	case FamilyIPv6:
		return FamilyIPv4
	default:
		return f
	}
}

// Status is the reported serving state of a tool on one address family.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Tool is a single sliver tool instance: one addressable backend offering
// the measurement tool named by ToolID at the site named by SiteID.
// Multiple tools may share a site (co-hosted sliver instances); a tool
// belongs to exactly one site.
type Tool struct {
	ToolID     string  `json:"tool_id"`
	SiteID     string  `json:"site_id"`
	FQDN       string  `json:"fqdn"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	StatusIPv4 Status  `json:"status_ipv4"`
	StatusIPv6 Status  `json:"status_ipv6"`
}

// StatusFor returns the tool's status on the given address family, or
// StatusUnknown for an unrecognized family.
func (t Tool) StatusFor(family Family) Status {
	switch family {
	case FamilyIPv4:
		return t.StatusIPv4
	case FamilyIPv6:
		return t.StatusIPv6
	default:
		return StatusUnknown
	}
}

// OnlineFor reports whether the tool is online on the given family. An
// unspecified family matches if either family is online.
func (t Tool) OnlineFor(family Family) bool {
	if family == "" {
		return t.StatusIPv4 == StatusOnline || t.StatusIPv6 == StatusOnline
	}
	return t.StatusFor(family) == StatusOnline
}

// Site is a physical location hosting one or more sliver tools. SiteID
// uniquely identifies the location; Metro is its coarse-grained grouping
// tag (typically an airport code).
type Site struct {
	SiteID    string  `json:"site_id"`
	Metro     string  `json:"metro"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
