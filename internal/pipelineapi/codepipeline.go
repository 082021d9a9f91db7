// Package pipelineapi defines the interface over the CodePipeline job
// worker operations this module uses, to enable testing and mocking.
package pipelineapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
)

// CodePipelineAPI is the completion-callback capability: exactly one of the
// two calls is issued per job.
type CodePipelineAPI interface {
	// PutJobSuccessResult acknowledges a job as succeeded
	PutJobSuccessResult(
		ctx context.Context,
		params *codepipeline.PutJobSuccessResultInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.PutJobSuccessResultOutput, error)

	// PutJobFailureResult acknowledges a job as failed with details
	PutJobFailureResult(
		ctx context.Context,
		params *codepipeline.PutJobFailureResultInput,
		optFns ...func(*codepipeline.Options),
	) (*codepipeline.PutJobFailureResultOutput, error)
}

// Verify that the AWS CodePipeline client implements our interface
var _ CodePipelineAPI = (*codepipeline.Client)(nil)
