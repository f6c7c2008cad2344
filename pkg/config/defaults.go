package config

import "github.com/GoSim-25-26J-441/opsim-driver/pkg/models"

// Default returns a complete configuration for the Cerro Pachón site.
// Callers usually overlay a file or overrides directory on top of it.
func Default() *Config {
	return &Config{
		Version:   "1.0.0",
		LogLevel:  "info",
		LogFormat: "json",
		Survey: Survey{
			StartDate:                 "2022-10-01",
			DurationYears:             10,
			IdleDelay:                 60,
			TwilightAngle:             -12,
			SchedulerTimeout:          180,
			FilterSwapTimeout:         5,
			InterestedProposalTimeout: 5,
			PollBackoff:               "exponential",
			PollInterval:              0.00001,
			PollIntervalMax:           0.01,
		},
		Site: Site{
			Name:      "Cerro Pachon",
			Latitude:  -30.2446,
			Longitude: -70.7494,
			Height:    2650,
		},
		Telescope: Telescope{
			AltitudeMin: 20,
			AltitudeMax: 86.5,
			Altitude:    Axis{MaxSpeed: 3.5, Accel: 3.5},
			Azimuth:     Axis{MaxSpeed: 7.0, Accel: 7.0},
			SettleTime:  3.0,
		},
		Dome: Dome{
			Altitude:   Axis{MaxSpeed: 1.75, Accel: 0.875},
			Azimuth:    Axis{MaxSpeed: 1.5, Accel: 0.75},
			SettleTime: 1.0,
		},
		Rotator: Rotator{
			MinPos: -90,
			MaxPos: 90,
			Axis:   Axis{MaxSpeed: 3.5, Accel: 1.0},
		},
		Camera: Camera{
			ReadoutTime:      2.0,
			ShutterTime:      1.0,
			FilterChangeTime: 120,
			FilterMounted:    []string{"g", "r", "i", "z", "y"},
			FilterRemovable:  []string{"y", "z"},
			FilterUnmounted:  []string{"u"},
		},
		Slew: Slew{
			IncludeDome: true,
		},
		OpticsLoopCorr: OpticsLoopCorr{
			OpenLoopSlope:       1.0 / 3.5,
			ClosedLoopAltLimits: []float64{0, 9, 90},
			ClosedLoopDelays:    []float64{0, 36},
		},
		Park: Park{
			TelescopeAltitude: 86.5,
			DomeAltitude:      90,
			Filter:            "z",
		},
		Seeing: Seeing{
			TelescopeSeeing:     0.25,
			OpticalDesignSeeing: 0.08,
			CameraSeeing:        0.30,
			ScaleToEff:          1.16,
			GeomEffFactor:       1.04,
			FilterWavelengths: map[string]float64{
				"u": 367.0, "g": 482.5, "r": 622.2, "i": 754.5, "z": 869.1, "y": 971.0,
			},
		},
		Sky: Sky{
			DarkSky: map[string]float64{
				"u": 22.99, "g": 22.26, "r": 21.20, "i": 20.48, "z": 19.60, "y": 18.61,
			},
			TwilightBrighten: 2.5,
			MoonBrighten:     2.0,
		},
		Environment: Environment{
			CloudDB:  "cloud.db",
			SeeingDB: "seeing.db",
		},
		Downtime: Downtime{
			ScheduledDB:           "scheduled_downtime.db",
			UnscheduledRandomSeed: 1640995200,
		},
		Database: Database{
			TrackingDriver:    "sqlite",
			TrackingDSN:       "output/opsim_tracking.db",
			SessionDir:        "output",
			StartingSessionID: 2000,
			SidecarDir:        "output",
		},
		SAL: SAL{
			Transport: "memory",
			Address:   "localhost:50551",
		},
		Proposals: Proposals{
			General: []Proposal{
				{
					ID:          1,
					Name:        "WideFastDeep",
					BoostWeight: 1.0,
					Fields: []models.Field{
						{FieldID: 1, FOV: 3.5, RA: 0, Dec: -30},
						{FieldID: 2, FOV: 3.5, RA: 30, Dec: -45},
					},
					Filters: map[string]FilterLimit{
						"g": {BrightLimit: 21.0, DarkLimit: 30.0, MaxSeeing: 1.5},
						"r": {BrightLimit: 20.25, DarkLimit: 30.0, MaxSeeing: 1.5},
						"i": {BrightLimit: 19.5, DarkLimit: 30.0, MaxSeeing: 1.5},
					},
				},
			},
		},
	}
}
