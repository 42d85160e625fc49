// Package decode implements the VIN decode pipeline: per-VIN request
// deduplication, concurrent primary and secondary lookups with a paid
// fallback, and normalization of heterogeneous upstream fields into the
// canonical vehicle record.
package decode

import (
	"strings"

	"github.com/vinlab/vinlab/engine/domain"
)

// absentLiterals are upstream values that mean "no data". The vPIC API in
// particular pads responses with "Not Applicable" strings.
var absentLiterals = map[string]bool{
	"":               true,
	"not applicable": true,
	"n/a":            true,
	"null":           true,
	"undefined":      true,
	"0":              true,
}

// absent reports whether an upstream value carries no information.
func absent(v string) bool {
	return absentLiterals[strings.ToLower(strings.TrimSpace(v))]
}

// pick returns the first non-absent value among candidate field names. The
// candidate lists below cover the spelling variants of the primary,
// secondary, and fallback sources.
func pick(raw map[string]string, names ...string) string {
	for _, n := range names {
		if v, ok := raw[n]; ok && !absent(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Map normalizes one raw upstream result row into the canonical record.
// Nested blocks attach only when at least one of their fields is present;
// Manufacturing is the exception, since its WMI is always derivable from the
// VIN itself. Metadata is left for the orchestrator to fill.
func Map(vin string, raw map[string]string) *domain.DecodedVehicle {
	v := &domain.DecodedVehicle{
		VIN:         vin,
		Year:        pick(raw, "ModelYear", "year", "model_year"),
		Make:        pick(raw, "Make", "make"),
		Model:       pick(raw, "Model", "model"),
		Trim:        pick(raw, "Trim", "trim"),
		Trim2:       pick(raw, "Trim2", "trim2"),
		BodyClass:   pick(raw, "BodyClass", "body_class", "bodyClass", "body"),
		VehicleType: pick(raw, "VehicleType", "vehicle_type", "type"),
		DriveType:   pick(raw, "DriveType", "drive_type", "drivetrain"),
		Doors:       pick(raw, "Doors", "doors"),
		GVWR:        pick(raw, "GVWR", "gvwr", "gross_vehicle_weight_rating"),
		Raw:         raw,
	}

	engine := &domain.Engine{
		Cylinders:         pick(raw, "EngineCylinders", "engine_cylinders", "cylinders"),
		DisplacementCC:    pick(raw, "DisplacementCC", "displacement_cc"),
		DisplacementL:     pick(raw, "DisplacementL", "displacement_l", "displacement"),
		FuelTypePrimary:   pick(raw, "FuelTypePrimary", "fuel_type_primary", "fuel_type", "fuel"),
		FuelTypeSecondary: pick(raw, "FuelTypeSecondary", "fuel_type_secondary"),
		PowerKW:           pick(raw, "EngineKW", "engine_kw"),
		PowerHP:           pick(raw, "EngineHP", "engine_hp", "horsepower"),
		Configuration:     pick(raw, "EngineConfiguration", "engine_configuration"),
		Manufacturer:      pick(raw, "EngineManufacturer", "engine_manufacturer"),
		Model:             pick(raw, "EngineModel", "engine_model"),
		Cycles:            pick(raw, "EngineCycles", "engine_cycles"),
	}
	if *engine != (domain.Engine{}) {
		v.Engine = engine
	}

	trans := &domain.Transmission{
		Type:   pick(raw, "TransmissionType", "transmission_type", "transmission"),
		Style:  pick(raw, "TransmissionStyle", "transmission_style"),
		Speeds: pick(raw, "TransmissionSpeeds", "transmission_speeds", "speeds"),
	}
	if *trans != (domain.Transmission{}) {
		v.Transmission = trans
	}

	v.Manufacturing = &domain.Manufacturing{
		WMI:            domain.WMI(vin),
		PlantCity:      pick(raw, "PlantCity", "plant_city"),
		PlantState:     pick(raw, "PlantState", "plant_state"),
		PlantCountry:   pick(raw, "PlantCountry", "plant_country", "made_in"),
		Manufacturer:   pick(raw, "Manufacturer", "ManufacturerName", "manufacturer"),
		ManufacturerID: pick(raw, "ManufacturerId", "manufacturer_id"),
		CommonName:     pick(raw, "CommonName", "common_name"),
		ParentCompany:  pick(raw, "ParentCompanyName", "parent_company"),
	}

	safety := &domain.Safety{
		AirbagLocFront:      pick(raw, "AirBagLocFront", "airbag_front"),
		AirbagLocSide:       pick(raw, "AirBagLocSide", "airbag_side"),
		AirbagLocCurtain:    pick(raw, "AirBagLocCurtain", "airbag_curtain"),
		AirbagLocKnee:       pick(raw, "AirBagLocKnee", "airbag_knee"),
		SeatBelts:           pick(raw, "SeatBeltsAll", "seat_belts"),
		ABS:                 pick(raw, "ABS", "abs"),
		ESC:                 pick(raw, "ESC", "esc"),
		TPMS:                pick(raw, "TPMS", "tpms"),
		DaytimeRunningLight: pick(raw, "DaytimeRunningLight", "daytime_running_light"),
		BlindSpotMonitoring: pick(raw, "BlindSpotMon", "blind_spot_monitoring"),
	}
	if *safety != (domain.Safety{}) {
		v.Safety = safety
	}

	dims := &domain.Dimensions{
		WheelBase:      pick(raw, "WheelBaseShort", "WheelBaseLong", "wheel_base"),
		TrackWidth:     pick(raw, "TrackWidth", "track_width"),
		WheelSizeFront: pick(raw, "WheelSizeFront", "wheel_size_front"),
		WheelSizeRear:  pick(raw, "WheelSizeRear", "wheel_size_rear"),
		CurbWeight:     pick(raw, "CurbWeightLB", "curb_weight"),
	}
	if *dims != (domain.Dimensions{}) {
		v.Dimensions = dims
	}

	return v
}

// MergeWMI folds secondary manufacturer-lookup fields into a record built
// from the primary source. Manufacturer name, common name, and parent
// company always win; make and vehicle type only fill gaps the primary left.
// Returns true when the secondary row contributed anything.
func MergeWMI(v *domain.DecodedVehicle, raw map[string]string) bool {
	name := pick(raw, "ManufacturerName", "Name")
	common := pick(raw, "CommonName")
	parent := pick(raw, "ParentCompanyName")
	mk := pick(raw, "Make")
	vt := pick(raw, "VehicleType")

	if name == "" && common == "" && parent == "" && mk == "" && vt == "" {
		return false
	}

	if name != "" {
		v.Manufacturing.Manufacturer = name
	}
	if common != "" {
		v.Manufacturing.CommonName = common
	}
	if parent != "" {
		v.Manufacturing.ParentCompany = parent
	}
	if v.Make == "" && mk != "" {
		v.Make = mk
	}
	if v.VehicleType == "" && vt != "" {
		v.VehicleType = vt
	}
	return true
}

// identified reports whether a record carries any identifying vehicle data.
func identified(v *domain.DecodedVehicle) bool {
	return v.Make != "" || v.Model != "" || v.Year != "" ||
		(v.Manufacturing != nil && v.Manufacturing.Manufacturer != "")
}
