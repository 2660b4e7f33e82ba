// Package worker provides bounded parallel batch validation.
//
// Example usage:
//
//	bv := worker.NewBatchValidator(validator.Evaluate, 4)
//	result := bv.ValidateBatch(ctx, []worker.Job{
//	    {Source: "a.hl7", Message: a},
//	    {Source: "b.hl7", Message: b},
//	})
//	for _, r := range result.Results {
//	    if r.Err != nil {
//	        // Handle service fault
//	    }
//	    // Process r.Report
//	}
package worker
