package ditto

// Thing is the wire shape of a single change event from the registry's
// things feed. Attributes and feature properties are schemaless maps; the
// router coerces individual values as it dispatches.
type Thing struct {
	ThingID    string             `json:"thingId"`
	Attributes map[string]any     `json:"attributes"`
	Features   map[string]Feature `json:"features"`
}

// Feature is one named capability of a thing. Only the properties object is
// carried on the feed; desired properties and definitions are not requested.
type Feature struct {
	Properties map[string]any `json:"properties"`
}

// Point is a geographic position in decimal degrees with elevation in meters.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// AssetMetadata describes a thing's identity and placement. Published to
// {thing}/metadata whenever the thing reports a location attribute.
type AssetMetadata struct {
	AssetID  string `json:"asset_id"`
	Type     string `json:"type"`
	Location Point  `json:"location"`
}

// Temperature is a single temperature reading in degrees Celsius.
type Temperature struct {
	Temperature float64 `json:"temperature"`
}

// Humidity is a relative humidity reading in percent.
type Humidity struct {
	Humidity float64 `json:"humidity"`
}

// Pressure is an atmospheric pressure reading in hPa.
type Pressure struct {
	Pressure float64 `json:"pressure"`
}

// Imu carries six-axis inertial data: linear acceleration in m/s^2 and
// angular velocity in rad/s.
type Imu struct {
	LinearAccelerationX float64 `json:"linear_acceleration_x"`
	LinearAccelerationY float64 `json:"linear_acceleration_y"`
	LinearAccelerationZ float64 `json:"linear_acceleration_z"`
	AngularVelocityX    float64 `json:"angular_velocity_x"`
	AngularVelocityY    float64 `json:"angular_velocity_y"`
	AngularVelocityZ    float64 `json:"angular_velocity_z"`
}

// TrafficLightStatus reports the current signal phase and seconds until the
// next phase change.
type TrafficLightStatus struct {
	CurrentState string  `json:"current_state"`
	TimeToChange float64 `json:"time_to_change"`
}

// Alert is one active alert on a thing. Message is "{thing_id}:{alert_type}"
// so downstream consumers can attribute the alert without a second lookup.
type Alert struct {
	Message  string `json:"message"`
	Severity int    `json:"severity"`
}

// Relationship links a thing to another twin in the registry. The reporting
// thing is always the child; the referenced target is the parent.
type Relationship struct {
	ChildThingID     string `json:"child_thing_id"`
	ParentThingID    string `json:"parent_thing_id"`
	RelationshipType string `json:"relationship_type"`
}

// MachineStatus summarizes an industrial machine's operational state.
type MachineStatus struct {
	MachineID  string  `json:"machine_id"`
	Status     string  `json:"status"`
	Uptime     float64 `json:"uptime"`
	Efficiency float64 `json:"efficiency"`
}

// EnvironmentalData aggregates ambient air-quality measurements.
type EnvironmentalData struct {
	AirQualityIndex float64 `json:"air_quality_index"`
	NoiseLevel      float64 `json:"noise_level"`
	LightIntensity  float64 `json:"light_intensity"`
	CO2Level        float64 `json:"co2_level"`
}

// TrafficData summarizes road traffic observed by a roadside sensor.
// CongestionLevel is an ordinal scale, 0 meaning free flow.
type TrafficData struct {
	VehicleCount    int     `json:"vehicle_count"`
	AverageSpeed    float64 `json:"average_speed"`
	CongestionLevel int     `json:"congestion_level"`
}

// CropData reports agricultural field conditions. GrowthStage is a fraction
// of the crop's full cycle.
type CropData struct {
	CropType     string  `json:"crop_type"`
	SoilMoisture float64 `json:"soil_moisture"`
	SoilPH       float64 `json:"soil_ph"`
	GrowthStage  float64 `json:"growth_stage"`
}

// WaterManagement reports a water-infrastructure node's readings and valve
// position.
type WaterManagement struct {
	WaterLevel  float64 `json:"water_level"`
	FlowRate    float64 `json:"flow_rate"`
	Turbidity   float64 `json:"turbidity"`
	ValveStatus bool    `json:"valve_status"`
}

// EnergyConsumption reports site energy draw and grid conditions.
type EnergyConsumption struct {
	TotalConsumption    float64 `json:"total_consumption"`
	RenewablePercentage float64 `json:"renewable_percentage"`
	GridLoad            float64 `json:"grid_load"`
}

// ProductionLine reports a manufacturing line's throughput and quality.
type ProductionLine struct {
	LineID                        string  `json:"line_id"`
	UnitsProduced                 int     `json:"units_produced"`
	DefectCount                   int     `json:"defect_count"`
	OverallEquipmentEffectiveness float64 `json:"overall_equipment_effectiveness"`
}
