package models

import "time"

// Settings keys as persisted in the key/value store.
const (
	KeyRefreshSeconds     = "refreshSeconds"
	KeyAutoAssign         = "autoAssign"
	KeyDriverPayPercent   = "driverPayPercent"
	KeyBaseFee            = "baseFee"
	KeyDistanceFee        = "distanceFee"
	KeyHighValueThreshold = "highValueThreshold"
	KeyHighValueFee       = "highValueFee"
)

// SettingsKeys lists every operator-configurable key.
func SettingsKeys() []string {
	return []string{
		KeyRefreshSeconds,
		KeyAutoAssign,
		KeyDriverPayPercent,
		KeyBaseFee,
		KeyDistanceFee,
		KeyHighValueThreshold,
		KeyHighValueFee,
	}
}

type ManagerSettings struct {
	RefreshSeconds     int     `json:"refreshSeconds"`
	AutoAssign         bool    `json:"autoAssign"`
	DriverPayPercent   float64 `json:"driverPayPercent"`
	BaseFee            float64 `json:"baseFee"`
	DistanceFee        float64 `json:"distanceFee"`
	HighValueThreshold float64 `json:"highValueThreshold"`
	HighValueFee       float64 `json:"highValueFee"`
}

// DefaultSettings are used for any key that is absent or unusable.
func DefaultSettings() ManagerSettings {
	return ManagerSettings{
		RefreshSeconds:     15,
		AutoAssign:         false,
		DriverPayPercent:   60,
		BaseFee:            50,
		DistanceFee:        10,
		HighValueThreshold: 1000,
		HighValueFee:       50,
	}
}

// AsMap returns the settings keyed the same way normalization reads them.
func (s ManagerSettings) AsMap() map[string]any {
	return map[string]any{
		KeyRefreshSeconds:     s.RefreshSeconds,
		KeyAutoAssign:         s.AutoAssign,
		KeyDriverPayPercent:   s.DriverPayPercent,
		KeyBaseFee:            s.BaseFee,
		KeyDistanceFee:        s.DistanceFee,
		KeyHighValueThreshold: s.HighValueThreshold,
		KeyHighValueFee:       s.HighValueFee,
	}
}

// SettingsSnapshot is an immutable, versioned configuration value. Updates
// replace the whole snapshot.
type SettingsSnapshot struct {
	Version   int64           `json:"version"`
	Settings  ManagerSettings `json:"settings"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StoredSettings is what the key/value store returns: raw strings plus the
// version they were written under.
type StoredSettings struct {
	Version int64
	Values  map[string]string
}
