package telemetry

import "codeberg.org/mutker/powerbridge/internal/record"

// Point types understood by the sink.
const (
	TypeVoltage     = "BATTERY_VOLTAGE"
	TypeCurrent     = "ELECTRIC_CURRENT"
	TypeConsumption = "ELECTRICAL_CONSUMPTION"
)

// Sink channel assignments.
const (
	ChannelSensor1     = 0
	ChannelSensor2     = 1
	ChannelEnergy1     = 2
	ChannelEnergy2     = 3
	ChannelEnergyTotal = 4
	ChannelPowerTotal  = 5

	batchSize = 10
)

// BuildBatch lays out the ten points for one frame in the order the sink
// expects. Sensor 1 comes first, then sensor 2, then the combined totals.
func BuildBatch(frame record.Frame, energy1, energy2 float64) Batch {
	s1, s2 := frame.Sensor1, frame.Sensor2

	data := make([]DataPoint, 0, batchSize)
	data = append(data,
		DataPoint{Type: TypeVoltage, Value: s1.Voltage, Channel: ChannelSensor1},
		DataPoint{Type: TypeCurrent, Value: s1.Current, Channel: ChannelSensor1},
		DataPoint{Type: TypeConsumption, Value: s1.Power, Channel: ChannelSensor1},
		DataPoint{Type: TypeConsumption, Value: energy1, Channel: ChannelEnergy1},
		DataPoint{Type: TypeVoltage, Value: s2.Voltage, Channel: ChannelSensor2},
		DataPoint{Type: TypeCurrent, Value: s2.Current, Channel: ChannelSensor2},
		DataPoint{Type: TypeConsumption, Value: s2.Power, Channel: ChannelSensor2},
		DataPoint{Type: TypeConsumption, Value: energy2, Channel: ChannelEnergy2},
		DataPoint{Type: TypeConsumption, Value: energy1 + energy2, Channel: ChannelEnergyTotal},
		DataPoint{Type: TypeConsumption, Value: frame.TotalPower(), Channel: ChannelPowerTotal},
	)

	return Batch{Data: data}
}
