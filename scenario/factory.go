package scenario

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Apoorvanp/Master-Simulations/components"
	"github.com/Apoorvanp/Master-Simulations/core"
)

// ErrUnknownComponentType marks a component type name the factory does
// not know.
var ErrUnknownComponentType = errors.New("unknown component type")

// buildComponent instantiates one component from its scenario section.
// The raw config map is decoded into the component's typed configuration
// with mapstructure, so scenario keys follow the mapstructure tags of the
// config structs.
func buildComponent(section ComponentSection) (core.Component, error) {
	if section.ID == "" {
		return nil, fmt.Errorf("%w: component without id", core.ErrConfiguration)
	}

	switch section.Type {
	case "load":
		var cfg components.LoadConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewLoad(section.ID, cfg)
	case "pv":
		var cfg components.PVConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewPV(section.ID, cfg)
	case "battery":
		var cfg components.BatteryConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewBattery(section.ID, cfg)
	case "heat_pump":
		var cfg components.HeatPumpConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewHeatPump(section.ID, cfg)
	case "heat_pump_controller":
		var cfg components.HeatPumpControllerConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewHeatPumpController(section.ID, cfg)
	case "hot_water_storage":
		var cfg components.HotWaterStorageConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewHotWaterStorage(section.ID, cfg)
	case "ev_charger":
		var cfg components.EVChargerConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewEVCharger(section.ID, cfg)
	case "energy_management":
		return components.NewEnergyManagement(section.ID), nil
	case "grid_meter":
		var cfg components.GridMeterConfig
		if err := decodeConfig(section, &cfg); err != nil {
			return nil, err
		}
		return components.NewGridMeter(section.ID, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q (component %q)", ErrUnknownComponentType, section.Type, section.ID)
	}
}

func decodeConfig(section ComponentSection, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("component %q: %w", section.ID, err)
	}
	if err := decoder.Decode(section.Config); err != nil {
		return fmt.Errorf("%w: component %q: %v", core.ErrConfiguration, section.ID, err)
	}
	return nil
}
