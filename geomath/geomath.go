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

// Package geomath provides the great-circle distance used to rank sites
// by proximity to a client.
package geomath

import "math"

// EarthRadiusKM is the mean radius of the Earth in kilometers.
const EarthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance in kilometers between two
// points given in decimal degrees, computed with the haversine formula.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}
