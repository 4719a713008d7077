// Package components provides the built-in household component library:
// electric loads, photovoltaics, batteries, heat pumps with their
// controllers, hot water storage, EV charging, an energy management
// system, and a grid meter. Every component implements core.Component;
// components that consume external profiles also implement
// core.ProfileUser.
package components

// Port names shared across the library. Scenario files reference these
// names in their connection lists, so they are part of the external
// contract and must stay stable.
const (
	PortConsumptionKW     = "ConsumptionKW"
	PortPowerKW           = "PowerKW"
	PortSetpointKW        = "SetpointKW"
	PortStateOfCharge     = "StateOfCharge"
	PortOnOffSignal       = "OnOffSignal"
	PortWaterTemperatureC = "WaterTemperatureC"
	PortThermalPowerKW    = "ThermalPowerKW"
	PortElectricPowerKW   = "ElectricPowerKW"
	PortCOP               = "COP"
	PortThermalPowerInKW  = "ThermalPowerInKW"
	PortHeatDemandKW      = "HeatDemandKW"
	PortPVPowerKW         = "PVPowerKW"
	PortHeatPumpPowerKW   = "HeatPumpPowerKW"
	PortBatteryPowerKW    = "BatteryPowerKW"
	PortBatterySOC        = "BatterySOC"
	PortEVPowerKW         = "EVPowerKW"
	PortBatterySetpointKW = "BatterySetpointKW"
	PortEVSetpointKW      = "EVSetpointKW"
	PortSurplusKW         = "SurplusKW"
	PortGridPowerKW       = "GridPowerKW"
	PortImportedEnergyKWh = "ImportedEnergyKWh"
	PortExportedEnergyKWh = "ExportedEnergyKWh"
	PortEnergyCostEUR     = "EnergyCostEUR"
)

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
