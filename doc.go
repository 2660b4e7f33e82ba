// Package nistvalidator validates HL7 v2 immunization messages against the
// NIST message validation service and turns its assertions into structured,
// addressable records.
//
// # Quick Start
//
//	import (
//	    nv "github.com/gofhir/nistvalidator"
//	    "github.com/gofhir/nistvalidator/engine"
//	)
//
//	validator, err := engine.New(ctx, nv.WithTimeout(20*time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	records, err := validator.ValidateAndReport(ctx, message)
//	if nv.IsServiceFault(err) {
//	    // the remote service failed; this is not "no findings"
//	}
//	for _, r := range records {
//	    fmt.Println(r)
//	}
//
// # Profile Resolution
//
// The validation profile is chosen from MSH-9 (message type) and MSH-21
// (profile identifier) by an ordered rule list in package profile. The first
// matching rule wins. A message no rule matches is reported as a single WARN
// record instead of being sent to the service.
//
// # Locations
//
// Assertion paths such as "OBX[2]-5[3].1.2" are decoded by package location.
// Malformed tokens leave the corresponding attribute absent; parsing never
// fails.
//
// # Functional Options
//
//	validator, err := engine.New(ctx,
//	    nv.WithServiceURL(url),
//	    nv.WithCacheSize(512),
//	    nv.WithSuppressions("severity = 'WARN' and segment = 'PID'"),
//	)
package nistvalidator
