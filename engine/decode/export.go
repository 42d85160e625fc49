package decode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vinlab/vinlab/engine/domain"
)

// Title renders "year make model" from whatever identifying fields exist,
// falling back to the VIN itself.
func Title(v *domain.DecodedVehicle) string {
	parts := nonEmpty(v.Year, v.Make, v.Model)
	if len(parts) == 0 {
		return v.VIN
	}
	return strings.Join(parts, " ")
}

// Subtitle renders "trim • bodyClass", falling back to the vehicle type when
// both are empty.
func Subtitle(v *domain.DecodedVehicle) string {
	parts := nonEmpty(v.Trim, v.BodyClass)
	if len(parts) == 0 {
		return v.VehicleType
	}
	return strings.Join(parts, " • ")
}

// Summary renders a multi-line human-readable description for sharing.
func Summary(v *domain.DecodedVehicle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Title(v))
	fmt.Fprintf(&b, "VIN: %s\n", v.VIN)
	if sub := Subtitle(v); sub != "" {
		fmt.Fprintf(&b, "%s\n", sub)
	}
	if v.Engine != nil {
		line := nonEmpty(v.Engine.Configuration, cylinderLabel(v.Engine.Cylinders), literLabel(v.Engine.DisplacementL), v.Engine.FuelTypePrimary)
		if len(line) > 0 {
			fmt.Fprintf(&b, "Engine: %s\n", strings.Join(line, ", "))
		}
	}
	if v.Transmission != nil {
		line := nonEmpty(v.Transmission.Style, v.Transmission.Type, speedLabel(v.Transmission.Speeds))
		if len(line) > 0 {
			fmt.Fprintf(&b, "Transmission: %s\n", strings.Join(line, ", "))
		}
	}
	if m := v.Manufacturing; m != nil {
		if m.Manufacturer != "" {
			fmt.Fprintf(&b, "Manufacturer: %s\n", m.Manufacturer)
		}
		if loc := strings.Join(nonEmpty(m.PlantCity, m.PlantState, m.PlantCountry), ", "); loc != "" {
			fmt.Fprintf(&b, "Assembled in: %s\n", loc)
		}
	}
	return b.String()
}

// Filename builds an export filename embedding the VIN.
func Filename(vin, format string) string {
	return fmt.Sprintf("vin-%s.%s", vin, format)
}

// ExportJSON serializes the record as indented JSON. When includeRaw is
// false the raw upstream passthrough is omitted entirely.
func ExportJSON(v *domain.DecodedVehicle, includeRaw bool) ([]byte, error) {
	out := *v
	if !includeRaw {
		out.Raw = nil
	}
	return json.MarshalIndent(&out, "", "  ")
}

// exportFields is the fixed ordering of the flat field/value export table,
// shared by the CSV and plain-text writers so both stay deterministic.
func exportFields(v *domain.DecodedVehicle) []struct{ Section, Label, Value string } {
	var rows []struct{ Section, Label, Value string }
	add := func(section, label, value string) {
		if value != "" {
			rows = append(rows, struct{ Section, Label, Value string }{section, label, value})
		}
	}

	add("Vehicle", "VIN", v.VIN)
	add("Vehicle", "Year", v.Year)
	add("Vehicle", "Make", v.Make)
	add("Vehicle", "Model", v.Model)
	add("Vehicle", "Trim", v.Trim)
	add("Vehicle", "Trim 2", v.Trim2)
	add("Vehicle", "Body Class", v.BodyClass)
	add("Vehicle", "Vehicle Type", v.VehicleType)
	add("Vehicle", "Drive Type", v.DriveType)
	add("Vehicle", "Doors", v.Doors)
	add("Vehicle", "GVWR", v.GVWR)

	if e := v.Engine; e != nil {
		add("Engine", "Cylinders", e.Cylinders)
		add("Engine", "Displacement (cc)", e.DisplacementCC)
		add("Engine", "Displacement (L)", e.DisplacementL)
		add("Engine", "Fuel Type", e.FuelTypePrimary)
		add("Engine", "Secondary Fuel Type", e.FuelTypeSecondary)
		add("Engine", "Power (kW)", e.PowerKW)
		add("Engine", "Power (HP)", e.PowerHP)
		add("Engine", "Configuration", e.Configuration)
		add("Engine", "Engine Manufacturer", e.Manufacturer)
		add("Engine", "Engine Model", e.Model)
		add("Engine", "Cycles", e.Cycles)
	}
	if t := v.Transmission; t != nil {
		add("Transmission", "Type", t.Type)
		add("Transmission", "Style", t.Style)
		add("Transmission", "Speeds", t.Speeds)
	}
	if m := v.Manufacturing; m != nil {
		add("Manufacturing", "WMI", m.WMI)
		add("Manufacturing", "Manufacturer", m.Manufacturer)
		add("Manufacturing", "Manufacturer ID", m.ManufacturerID)
		add("Manufacturing", "Common Name", m.CommonName)
		add("Manufacturing", "Parent Company", m.ParentCompany)
		add("Manufacturing", "Plant City", m.PlantCity)
		add("Manufacturing", "Plant State", m.PlantState)
		add("Manufacturing", "Plant Country", m.PlantCountry)
	}
	if s := v.Safety; s != nil {
		add("Safety", "Front Airbags", s.AirbagLocFront)
		add("Safety", "Side Airbags", s.AirbagLocSide)
		add("Safety", "Curtain Airbags", s.AirbagLocCurtain)
		add("Safety", "Knee Airbags", s.AirbagLocKnee)
		add("Safety", "Seat Belts", s.SeatBelts)
		add("Safety", "ABS", s.ABS)
		add("Safety", "ESC", s.ESC)
		add("Safety", "TPMS", s.TPMS)
		add("Safety", "Daytime Running Lights", s.DaytimeRunningLight)
		add("Safety", "Blind Spot Monitoring", s.BlindSpotMonitoring)
	}
	if d := v.Dimensions; d != nil {
		add("Dimensions", "Wheel Base", d.WheelBase)
		add("Dimensions", "Track Width", d.TrackWidth)
		add("Dimensions", "Front Wheel Size", d.WheelSizeFront)
		add("Dimensions", "Rear Wheel Size", d.WheelSizeRear)
		add("Dimensions", "Curb Weight", d.CurbWeight)
	}
	return rows
}

// ExportCSV serializes the record as a two-column field/value table with
// every cell double-quoted.
func ExportCSV(v *domain.DecodedVehicle) []byte {
	var b strings.Builder
	b.WriteString("\"Field\",\"Value\"\n")
	for _, row := range exportFields(v) {
		fmt.Fprintf(&b, "%s,%s\n", csvQuote(row.Label), csvQuote(row.Value))
	}
	return []byte(b.String())
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportText serializes the record as labeled plain-text sections.
func ExportText(v *domain.DecodedVehicle) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", Title(v), strings.Repeat("=", len(Title(v))))

	var section string
	for _, row := range exportFields(v) {
		if row.Section != section {
			if section != "" {
				b.WriteString("\n")
			}
			section = row.Section
			fmt.Fprintf(&b, "%s\n%s\n", section, strings.Repeat("-", len(section)))
		}
		fmt.Fprintf(&b, "%-24s %s\n", row.Label+":", row.Value)
	}
	return []byte(b.String())
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cylinderLabel(c string) string {
	if c == "" {
		return ""
	}
	return c + " cyl"
}

func literLabel(l string) string {
	if l == "" {
		return ""
	}
	return l + "L"
}

func speedLabel(s string) string {
	if s == "" {
		return ""
	}
	return s + "-speed"
}
