// Package obd parses OBDLink CSV log exports and persists the readings.
//
// An export looks like:
//
//	<banner line, ignored>
//	Time,Vehicle speed (MPH),Engine RPM (RPM),...
//	2024-01-01T00:00:00,55.5,2100,...
//
// Each column header carries a display name and, usually, a parenthesised
// unit annotation. The annotation selects a MeasurementType; the display
// name is the header with the annotation removed. Every non-NODATA cell
// becomes one Record.
//
// # Usage
//
//	parser := obd.NewParser()
//	result, err := parser.ParseFile(path)
//	if err != nil {
//	    return err
//	}
//
//	repo := obd.NewSQLiteRepository(db.DB)
//	n, err := repo.InsertBatch(ctx, result.Records)
//
// Importer wraps both steps and hands the records to optional sinks
// (MQTT, InfluxDB) once they are stored locally.
//
// # Failure Model
//
// Any parse failure aborts the whole file. Nothing is persisted for a file
// that does not parse completely. Unrecognised unit annotations are not
// failures; they classify as Unknown.
package obd
