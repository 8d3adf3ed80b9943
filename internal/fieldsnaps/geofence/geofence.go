// Package geofence holds the battery/accuracy presets handed to the mobile
// background-geolocation SDK and the job-site fences it should register.
// The SDK does the on-device motion detection; the server only needs the
// distance check used to flag punches made away from the site.
package geofence

import (
	"fmt"
	"math"
	"sort"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/utils"
)

const (
	MinRadiusM = 25
	MaxRadiusM = 5000

	earthRadiusM = 6_371_000.0
)

// Mode selects a tracking preset.
type Mode string

const (
	HighAccuracy Mode = "high_accuracy"
	Balanced     Mode = "balanced"
	LowPower     Mode = "low_power"
)

// Config is the parameter object passed to the SDK's ready() call.
type Config struct {
	Mode                    Mode `json:"mode"`
	DesiredAccuracyM        int  `json:"desiredAccuracy"`
	DistanceFilterM         int  `json:"distanceFilter"`
	StationaryRadiusM       int  `json:"stationaryRadius"`
	StopTimeoutMin          int  `json:"stopTimeout"`
	HeartbeatIntervalSec    int  `json:"heartbeatInterval"`
	GeofenceProximityRadius int  `json:"geofenceProximityRadius"`
	GeofenceInitialTrigger  bool `json:"geofenceInitialTriggerEntry"`
	GeofenceModeHighAcc     bool `json:"geofenceModeHighAccuracy"`
	StopOnTerminate         bool `json:"stopOnTerminate"`
	StartOnBoot             bool `json:"startOnBoot"`
	PreventSuspend          bool `json:"preventSuspend"`
	DisableMotionActivity   bool `json:"disableMotionActivityUpdates"`
}

var presets = map[Mode]Config{
	HighAccuracy: {
		Mode:                    HighAccuracy,
		DesiredAccuracyM:        10,
		DistanceFilterM:         10,
		StationaryRadiusM:       25,
		StopTimeoutMin:          5,
		HeartbeatIntervalSec:    60,
		GeofenceProximityRadius: 1000,
		GeofenceInitialTrigger:  true,
		GeofenceModeHighAcc:     true,
		StartOnBoot:             true,
		PreventSuspend:          true,
	},
	Balanced: {
		Mode:                    Balanced,
		DesiredAccuracyM:        100,
		DistanceFilterM:         50,
		StationaryRadiusM:       50,
		StopTimeoutMin:          10,
		HeartbeatIntervalSec:    300,
		GeofenceProximityRadius: 2000,
		GeofenceInitialTrigger:  true,
		StartOnBoot:             true,
	},
	LowPower: {
		Mode:                    LowPower,
		DesiredAccuracyM:        1000,
		DistanceFilterM:         200,
		StationaryRadiusM:       150,
		StopTimeoutMin:          15,
		HeartbeatIntervalSec:    900,
		GeofenceProximityRadius: 5000,
		GeofenceInitialTrigger:  true,
		StopOnTerminate:         true,
		DisableMotionActivity:   true,
	},
}

// Preset returns the config for mode; an empty mode means Balanced.
func Preset(mode Mode) (Config, error) {
	if mode == "" {
		mode = Balanced
	}
	cfg, ok := presets[mode]
	if !ok {
		return Config{}, fmt.Errorf("unknown tracking mode %q", mode)
	}
	return cfg, nil
}

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is on the globe.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Fence is one circular geofence as the SDK expects it.
type Fence struct {
	Identifier    string  `json:"identifier"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Radius        int     `json:"radius"`
	NotifyOnEntry bool    `json:"notifyOnEntry"`
	NotifyOnExit  bool    `json:"notifyOnExit"`
}

// Center returns the fence center.
func (f Fence) Center() Point {
	return Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// ForProject builds the fence for a project, or false when the project has no
// coordinates or is completed.
func ForProject(p *models.Project) (Fence, bool) {
	if !p.HasLocation() || p.Completed {
		return Fence{}, false
	}
	radius := p.GeofenceRadiusM
	if radius == 0 {
		radius = models.DefaultGeofenceRadiusM
	}
	return Fence{
		Identifier:    p.ID.String(),
		Latitude:      *p.Latitude,
		Longitude:     *p.Longitude,
		Radius:        utils.Clamp(radius, MinRadiusM, MaxRadiusM),
		NotifyOnEntry: true,
		NotifyOnExit:  true,
	}, true
}

// ForProjects builds fences for every eligible project, nearest first when
// origin is given.
func ForProjects(projects []*models.Project, origin *Point) []Fence {
	fences := make([]Fence, 0, len(projects))
	for _, p := range projects {
		if f, ok := ForProject(p); ok {
			fences = append(fences, f)
		}
	}
	if origin != nil {
		sort.SliceStable(fences, func(i, j int) bool {
			return Distance(*origin, fences[i].Center()) < Distance(*origin, fences[j].Center())
		})
	}
	return fences
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Contains reports whether p lies inside the fence.
func (f Fence) Contains(p Point) bool {
	return Distance(f.Center(), p) <= float64(f.Radius)
}
