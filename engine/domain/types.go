// Package domain defines the canonical vehicle record, VIN validation, and
// static brand reference data for the vinlab decode pipeline. It acts as the
// validation gate at pipeline entry points.
package domain

import "time"

// Source identifies which data source tier produced a decoded record.
type Source string

const (
	// SourcePrimary is the NHTSA vPIC decode (free, authoritative).
	SourcePrimary Source = "vpic"
	// SourceFallback is the paid third-party decoder.
	SourceFallback Source = "fallback"
)

// DecodedVehicle is the canonical output of a VIN decode. It is constructed
// fresh per decode call and never mutated after being handed to the cache; a
// later decode of the same VIN supersedes it rather than merging.
type DecodedVehicle struct {
	VIN         string `json:"vin"`
	Year        string `json:"year,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Trim        string `json:"trim,omitempty"`
	Trim2       string `json:"trim2,omitempty"`
	BodyClass   string `json:"bodyClass,omitempty"`
	VehicleType string `json:"vehicleType,omitempty"`
	DriveType   string `json:"driveType,omitempty"`
	Doors       string `json:"doors,omitempty"`
	GVWR        string `json:"gvwr,omitempty"`

	Engine        *Engine        `json:"engine,omitempty"`
	Transmission  *Transmission  `json:"transmission,omitempty"`
	Manufacturing *Manufacturing `json:"manufacturing,omitempty"`
	Safety        *Safety        `json:"safety,omitempty"`
	Dimensions    *Dimensions    `json:"dimensions,omitempty"`

	// Raw is the untouched upstream field set for advanced consumers. It has
	// no assumed schema.
	Raw map[string]string `json:"raw,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Engine describes the powertrain, populated only when at least one field
// survived absence normalization.
type Engine struct {
	Cylinders         string `json:"cylinders,omitempty"`
	DisplacementCC    string `json:"displacementCC,omitempty"`
	DisplacementL     string `json:"displacementL,omitempty"`
	FuelTypePrimary   string `json:"fuelTypePrimary,omitempty"`
	FuelTypeSecondary string `json:"fuelTypeSecondary,omitempty"`
	PowerKW           string `json:"powerKW,omitempty"`
	PowerHP           string `json:"powerHP,omitempty"`
	Configuration     string `json:"configuration,omitempty"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	Model             string `json:"model,omitempty"`
	Cycles            string `json:"cycles,omitempty"`
}

// Transmission describes the gearbox.
type Transmission struct {
	Type   string `json:"type,omitempty"`
	Style  string `json:"style,omitempty"`
	Speeds string `json:"speeds,omitempty"`
}

// Manufacturing describes where and by whom the vehicle was built. WMI is
// derived from the first three VIN characters and is set even when every
// other field is empty.
type Manufacturing struct {
	WMI            string `json:"wmi"`
	PlantCity      string `json:"plantCity,omitempty"`
	PlantState     string `json:"plantState,omitempty"`
	PlantCountry   string `json:"plantCountry,omitempty"`
	Manufacturer   string `json:"manufacturer,omitempty"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	CommonName     string `json:"commonName,omitempty"`
	ParentCompany  string `json:"parentCompany,omitempty"`
}

// Safety describes installed safety equipment.
type Safety struct {
	AirbagLocFront      string `json:"airbagLocFront,omitempty"`
	AirbagLocSide       string `json:"airbagLocSide,omitempty"`
	AirbagLocCurtain    string `json:"airbagLocCurtain,omitempty"`
	AirbagLocKnee       string `json:"airbagLocKnee,omitempty"`
	SeatBelts           string `json:"seatBelts,omitempty"`
	ABS                 string `json:"abs,omitempty"`
	ESC                 string `json:"esc,omitempty"`
	TPMS                string `json:"tpms,omitempty"`
	DaytimeRunningLight string `json:"daytimeRunningLight,omitempty"`
	BlindSpotMonitoring string `json:"blindSpotMonitoring,omitempty"`
}

// Dimensions describes physical measurements.
type Dimensions struct {
	WheelBase      string `json:"wheelBase,omitempty"`
	TrackWidth     string `json:"trackWidth,omitempty"`
	WheelSizeFront string `json:"wheelSizeFront,omitempty"`
	WheelSizeRear  string `json:"wheelSizeRear,omitempty"`
	CurbWeight     string `json:"curbWeight,omitempty"`
}

// Metadata records provenance for a decoded record.
type Metadata struct {
	APIVersion string    `json:"apiVersion,omitempty"`
	DecodedAt  time.Time `json:"decodedAt"`
	Source     Source    `json:"source"`
	// WMIDecoded is true when the secondary WMI manufacturer lookup
	// contributed data to the record.
	WMIDecoded bool `json:"wmiDecoded"`
}

// HistoryItem is one entry in the persisted decode history. History is
// append-only up to a fixed maximum; its retention is independent of the
// cache expiry policy.
type HistoryItem struct {
	ID        string          `json:"id"`
	VIN       string          `json:"vin"`
	Make      string          `json:"make,omitempty"`
	Model     string          `json:"model,omitempty"`
	Year      string          `json:"year,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Vehicle   *DecodedVehicle `json:"vehicle,omitempty"`
}

// BrandInfo is static reference data about a vehicle brand, used for display
// and routing only. It is not part of the decode algorithm's state.
type BrandInfo struct {
	Name          string   `json:"name"`
	FullName      string   `json:"fullName"`
	Description   string   `json:"description"`
	WMIPrefixes   []string `json:"wmiPrefixes"`
	PopularModels []string `json:"popularModels"`
	Country       string   `json:"country"`
}

// WMI returns the World Manufacturer Identifier portion of a VIN, or "" if
// the input is shorter than three characters.
func WMI(vin string) string {
	if len(vin) < 3 {
		return ""
	}
	return vin[:3]
}
