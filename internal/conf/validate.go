// conf/validate.go settings validation
package conf

import (
	"github.com/gatewatch/gatewatch-go/internal/errors"
)

// ValidateSettings checks that the loaded settings are internally consistent.
func ValidateSettings(settings *Settings) error {
	att := &settings.Realtime.Attendance

	if att.Enabled {
		if att.GateZone == "" {
			return errors.Newf("attendance gate zone must not be empty").
				Category(errors.CategoryValidation).
				Context("setting", "realtime.attendance.gatezone").
				Build()
		}
		if att.GateCamera == "" {
			return errors.Newf("attendance gate camera must not be empty").
				Category(errors.CategoryValidation).
				Context("setting", "realtime.attendance.gatecamera").
				Build()
		}
		if att.MinZoneDurationSeconds < 0 {
			return errors.Newf("minimum zone duration must not be negative").
				Category(errors.CategoryValidation).
				Context("setting", "realtime.attendance.minzonedurationseconds").
				Build()
		}
		if att.PresenceTTLSeconds <= 0 || att.MarkerTTLSeconds <= 0 {
			return errors.Newf("presence and marker TTLs must be positive").
				Category(errors.CategoryValidation).
				Build()
		}
	}

	ks := &settings.Realtime.KeyedStore
	if ks.Backend != "memory" && ks.Backend != "redis" {
		return errors.Newf("unknown keyed store backend: %s", ks.Backend).
			Category(errors.CategoryValidation).
			Context("setting", "realtime.keyedstore.backend").
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no datastore enabled, enable either sqlite or mysql output").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
