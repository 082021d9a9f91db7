// Package sitesync synchronizes a zipped build artifact to an S3 bucket
// serving a static site, on behalf of a CodePipeline custom action.
//
// A Handler processes one pipeline job end to end: it fetches the input
// artifact, extracts it, lists the destination bucket, reconciles the two
// inventories into a diff plan, applies the plan (uploads before deletes,
// never the other way around), and reports the outcome back to the
// pipeline. Re-invoking the same job is safe: extraction and reconciliation
// are deterministic, so a second run converges on an empty plan.
//
// Basic usage:
//
//	handler, err := sitesync.New(ctx,
//		sitesync.WithRegion("eu-west-1"),
//		sitesync.WithConcurrency(8),
//	)
//	if err != nil {
//		return err
//	}
//
//	job, err := sitesync.ParseJobEvent(event)
//	if err != nil {
//		return err
//	}
//
//	result, err := handler.Handle(ctx, job)
package sitesync
