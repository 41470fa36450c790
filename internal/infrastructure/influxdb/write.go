package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Tag and field keys for signal points.
const (
	TagName            = "name"
	TagMeasurementType = "measurement_type"
	TagUnit            = "unit"
	FieldValue         = "value"
)

// WriteSignal queues one logged reading at its recorded time.
//
//	obd_signal,name=Vehicle\ speed,measurement_type=mph,unit=MPH value=55.5 <ts>
//
// unit may be empty for signals without a recognised unit, in which case
// the tag is omitted. Writes after Close are dropped.
func (c *Client) WriteSignal(name, measurementType, unit string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		TagName:            name,
		TagMeasurementType: measurementType,
	}
	if unit != "" {
		tags[TagUnit] = unit
	}

	c.writeAPI.WritePoint(write.NewPoint(c.measurement, tags, map[string]interface{}{FieldValue: value}, timestamp))
}
