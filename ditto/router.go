package ditto

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/c360/dittobridge/errors"
)

// featureKind binds one feature name on the change feed to a topic suffix
// and a builder producing the typed messages for that feature. A builder may
// return several messages (alerts and relationships fan out per entry).
type featureKind struct {
	key    string
	suffix string
	build  func(thingID string, props map[string]any) ([]any, error)
}

// Router classifies decoded thing payloads and publishes one typed message
// per recognized feature. Unknown features are ignored without logging; a
// coercion or publish failure aborts the rest of the thing's features.
type Router struct {
	registry *PublisherRegistry
	logger   *slog.Logger
	kinds    []featureKind
}

// NewRouter creates a router with the full feature-kind registry wired in.
func NewRouter(registry *PublisherRegistry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default().With("component", "router")
	}
	return &Router{
		registry: registry,
		logger:   logger,
		kinds:    defaultKinds(),
	}
}

// Route publishes every recognized feature of thing. The metadata message is
// handled first when a location attribute is present, then features in
// registry order. The first error aborts the remaining features for this
// thing only; the caller decides whether to keep the stream alive.
func (r *Router) Route(ctx context.Context, thing Thing) error {
	if err := r.routeMetadata(ctx, thing); err != nil {
		return err
	}

	for _, kind := range r.kinds {
		feature, ok := thing.Features[kind.key]
		if !ok {
			continue
		}
		props := feature.Properties
		if props == nil {
			props = map[string]any{}
		}

		msgs, err := kind.build(thing.ThingID, props)
		if err != nil {
			return errors.WrapInvalid(err, "router", "Route", kind.key+" coercion")
		}

		pub, err := r.registry.GetOrCreate(thing.ThingID+"/"+kind.suffix, kind.key)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := pub.Publish(ctx, msg); err != nil {
				return err
			}
			r.logger.Debug("Published feature message",
				"thing_id", thing.ThingID,
				"kind", kind.key,
				"topic", pub.Topic())
		}
	}

	return nil
}

// routeMetadata publishes the asset metadata message when the thing carries
// a location attribute. Things without a location are common and skipped
// silently.
func (r *Router) routeMetadata(ctx context.Context, thing Thing) error {
	raw, ok := thing.Attributes["location"]
	if !ok {
		return nil
	}

	location, ok := raw.(map[string]any)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("location attribute is %T, not an object", raw),
			"router", "routeMetadata", "location coercion")
	}

	longitude, err := toFloat(location, "longitude", 0.0)
	if err != nil {
		return errors.WrapInvalid(err, "router", "routeMetadata", "location coercion")
	}
	latitude, err := toFloat(location, "latitude", 0.0)
	if err != nil {
		return errors.WrapInvalid(err, "router", "routeMetadata", "location coercion")
	}
	elevation, err := toFloat(location, "elevation", 0.0)
	if err != nil {
		return errors.WrapInvalid(err, "router", "routeMetadata", "location coercion")
	}

	assetType, err := toString(thing.Attributes, "asset_type", "")
	if err != nil {
		return errors.WrapInvalid(err, "router", "routeMetadata", "asset_type coercion")
	}

	msg := AssetMetadata{
		AssetID: thing.ThingID,
		Type:    assetType,
		Location: Point{
			Latitude:  latitude,
			Longitude: longitude,
			Elevation: elevation,
		},
	}

	pub, err := r.registry.GetOrCreate(thing.ThingID+"/metadata", "metadata")
	if err != nil {
		return err
	}
	return pub.Publish(ctx, msg)
}

// defaultKinds returns the feature registry in dispatch order. Order matters
// only for deterministic behavior when a mid-route failure aborts the
// remaining features.
func defaultKinds() []featureKind {
	return []featureKind{
		{key: "temperature", suffix: "sensor/temperature", build: buildTemperature},
		{key: "traffic_light_status", suffix: "traffic_light_status", build: buildTrafficLight},
		{key: "humidity", suffix: "sensor/humidity", build: buildHumidity},
		{key: "pressure", suffix: "sensor/pressure", build: buildPressure},
		{key: "imu", suffix: "sensor/imu", build: buildImu},
		{key: "alerts", suffix: "alerts", build: buildAlerts},
		{key: "relationships", suffix: "relationships", build: buildRelationships},
		{key: "status", suffix: "status", build: buildStatus},
		{key: "environment", suffix: "sensor/environment", build: buildEnvironment},
		{key: "traffic", suffix: "traffic", build: buildTraffic},
		{key: "crop", suffix: "sensor/crop", build: buildCrop},
		{key: "water", suffix: "sensor/water", build: buildWater},
		{key: "energy", suffix: "energy", build: buildEnergy},
		{key: "production", suffix: "production", build: buildProduction},
	}
}

func buildTemperature(_ string, props map[string]any) ([]any, error) {
	value, err := toFloat(props, "value", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{Temperature{Temperature: value}}, nil
}

func buildHumidity(_ string, props map[string]any) ([]any, error) {
	value, err := toFloat(props, "value", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{Humidity{Humidity: value}}, nil
}

func buildPressure(_ string, props map[string]any) ([]any, error) {
	value, err := toFloat(props, "value", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{Pressure{Pressure: value}}, nil
}

func buildTrafficLight(_ string, props map[string]any) ([]any, error) {
	state, err := toString(props, "current_state", "unknown")
	if err != nil {
		return nil, err
	}
	timeToChange, err := toFloat(props, "time_to_change", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{TrafficLightStatus{CurrentState: state, TimeToChange: timeToChange}}, nil
}

func buildImu(_ string, props map[string]any) ([]any, error) {
	var msg Imu
	fields := []struct {
		key string
		dst *float64
	}{
		{"accel_x", &msg.LinearAccelerationX},
		{"accel_y", &msg.LinearAccelerationY},
		{"accel_z", &msg.LinearAccelerationZ},
		{"gyro_x", &msg.AngularVelocityX},
		{"gyro_y", &msg.AngularVelocityY},
		{"gyro_z", &msg.AngularVelocityZ},
	}
	for _, f := range fields {
		value, err := toFloat(props, f.key, 0.0)
		if err != nil {
			return nil, err
		}
		*f.dst = value
	}
	return []any{msg}, nil
}

// buildAlerts emits one Alert per inbox entry. The entry key is an opaque
// message ID and is not carried; the alert type is read from the entry body.
func buildAlerts(thingID string, props map[string]any) ([]any, error) {
	msgs := make([]any, 0, len(props))
	for id, raw := range props {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("alert %q is %T, not an object", id, raw)
		}
		alertType, err := toString(entry, "type", "unknown")
		if err != nil {
			return nil, err
		}
		severity, err := toInt(entry, "severity", 0)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Alert{
			Message:  thingID + ":" + alertType,
			Severity: severity,
		})
	}
	return msgs, nil
}

// buildRelationships emits one Relationship per entry, keyed by relationship
// type. The reporting thing is the child; the entry's target is the parent.
func buildRelationships(thingID string, props map[string]any) ([]any, error) {
	msgs := make([]any, 0, len(props))
	for relType, raw := range props {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("relationship %q is %T, not an object", relType, raw)
		}
		target, err := toString(entry, "target", "")
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Relationship{
			ChildThingID:     thingID,
			ParentThingID:    target,
			RelationshipType: relType,
		})
	}
	return msgs, nil
}

func buildStatus(thingID string, props map[string]any) ([]any, error) {
	status, err := toString(props, "value", "")
	if err != nil {
		return nil, err
	}
	uptime, err := toFloat(props, "uptime", 0.0)
	if err != nil {
		return nil, err
	}
	efficiency, err := toFloat(props, "efficiency", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{MachineStatus{
		MachineID:  thingID,
		Status:     status,
		Uptime:     uptime,
		Efficiency: efficiency,
	}}, nil
}

func buildEnvironment(_ string, props map[string]any) ([]any, error) {
	var msg EnvironmentalData
	fields := []struct {
		key string
		dst *float64
	}{
		{"aqi", &msg.AirQualityIndex},
		{"noise", &msg.NoiseLevel},
		{"light", &msg.LightIntensity},
		{"co2", &msg.CO2Level},
	}
	for _, f := range fields {
		value, err := toFloat(props, f.key, 0.0)
		if err != nil {
			return nil, err
		}
		*f.dst = value
	}
	return []any{msg}, nil
}

func buildTraffic(_ string, props map[string]any) ([]any, error) {
	count, err := toInt(props, "count", 0)
	if err != nil {
		return nil, err
	}
	avgSpeed, err := toFloat(props, "avg_speed", 0.0)
	if err != nil {
		return nil, err
	}
	congestion, err := toInt(props, "congestion", 0)
	if err != nil {
		return nil, err
	}
	return []any{TrafficData{
		VehicleCount:    count,
		AverageSpeed:    avgSpeed,
		CongestionLevel: congestion,
	}}, nil
}

func buildCrop(_ string, props map[string]any) ([]any, error) {
	cropType, err := toString(props, "type", "")
	if err != nil {
		return nil, err
	}
	moisture, err := toFloat(props, "moisture", 0.0)
	if err != nil {
		return nil, err
	}
	ph, err := toFloat(props, "ph", 0.0)
	if err != nil {
		return nil, err
	}
	growth, err := toFloat(props, "growth", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{CropData{
		CropType:     cropType,
		SoilMoisture: moisture,
		SoilPH:       ph,
		GrowthStage:  growth,
	}}, nil
}

func buildWater(_ string, props map[string]any) ([]any, error) {
	level, err := toFloat(props, "level", 0.0)
	if err != nil {
		return nil, err
	}
	flow, err := toFloat(props, "flow", 0.0)
	if err != nil {
		return nil, err
	}
	turbidity, err := toFloat(props, "turbidity", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{WaterManagement{
		WaterLevel:  level,
		FlowRate:    flow,
		Turbidity:   turbidity,
		ValveStatus: toBool(props, "valve_open"),
	}}, nil
}

func buildEnergy(_ string, props map[string]any) ([]any, error) {
	total, err := toFloat(props, "total", 0.0)
	if err != nil {
		return nil, err
	}
	renewable, err := toFloat(props, "renewable", 0.0)
	if err != nil {
		return nil, err
	}
	gridLoad, err := toFloat(props, "grid_load", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{EnergyConsumption{
		TotalConsumption:    total,
		RenewablePercentage: renewable,
		GridLoad:            gridLoad,
	}}, nil
}

func buildProduction(thingID string, props map[string]any) ([]any, error) {
	units, err := toInt(props, "units", 0)
	if err != nil {
		return nil, err
	}
	defects, err := toInt(props, "defects", 0)
	if err != nil {
		return nil, err
	}
	oee, err := toFloat(props, "oee", 0.0)
	if err != nil {
		return nil, err
	}
	return []any{ProductionLine{
		LineID:                        thingID,
		UnitsProduced:                 units,
		DefectCount:                   defects,
		OverallEquipmentEffectiveness: oee,
	}}, nil
}

// toFloat reads a numeric property, accepting JSON numbers, numeric strings,
// and booleans (1/0). A missing key yields the default; a present value that
// cannot be coerced is an error.
func toFloat(props map[string]any, key string, def float64) (float64, error) {
	raw, ok := props[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number for %s", errors.ErrCoercion, v, key)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T is not numeric for %s", errors.ErrCoercion, raw, key)
	}
}

// toInt reads an integer property. JSON numbers truncate toward zero;
// strings must parse as whole integers.
func toInt(props map[string]any, key string, def int) (int, error) {
	raw, ok := props[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer for %s", errors.ErrCoercion, v, key)
		}
		return i, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T is not an integer for %s", errors.ErrCoercion, raw, key)
	}
}

// toString reads a string property. Non-string values present under the key
// are rejected rather than stringified.
func toString(props map[string]any, key, def string) (string, error) {
	raw, ok := props[key]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a string for %s", errors.ErrCoercion, raw, key)
	}
	return s, nil
}

// toBool reads a property under truthiness rules: absent, false, zero, and
// empty values are false, everything else true. Never errors.
func toBool(props map[string]any, key string) bool {
	raw, ok := props[key]
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
