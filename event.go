package sitesync

import (
	"encoding/json"
	"fmt"

	syncerrors "github.com/forgekit/sitesync/errors"
	"github.com/forgekit/sitesync/synctypes"
)

// jobEvent mirrors the CodePipeline invocation payload, decoding only the
// fields the handler consumes.
type jobEvent struct {
	Job struct {
		ID   string `json:"id"`
		Data struct {
			ActionConfiguration struct {
				Configuration struct {
					UserParameters string `json:"UserParameters"`
				} `json:"configuration"`
			} `json:"actionConfiguration"`
			InputArtifacts []struct {
				Revision *string `json:"revision"`
				Location struct {
					S3Location struct {
						BucketName string `json:"bucketName"`
						ObjectKey  string `json:"objectKey"`
					} `json:"s3Location"`
				} `json:"location"`
			} `json:"inputArtifacts"`
			ArtifactCredentials *struct {
				AccessKeyID     string `json:"accessKeyId"`
				SecretAccessKey string `json:"secretAccessKey"`
				SessionToken    string `json:"sessionToken"`
			} `json:"artifactCredentials"`
		} `json:"data"`
	} `json:"CodePipeline.job"`
}

// userParameters is the action's free-form configuration, delivered as a
// JSON string inside the event.
type userParameters struct {
	// StaticS3 is the destination bucket serving the site
	StaticS3 string `json:"staticS3"`

	// Prefix optionally roots all destination keys
	Prefix string `json:"prefix"`

	// MaxEntrySize overrides the per-entry extraction limit when > 0
	MaxEntrySize int64 `json:"maxEntrySize"`
}

// ParseJobEvent decodes a CodePipeline job invocation event into a Job.
// Malformed events, a missing input artifact, and missing or undecodable
// user parameters all return ErrInvalidInput.
func ParseJobEvent(data []byte) (*synctypes.Job, error) {
	var event jobEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, err)).
			WithMessage("event is not valid JSON")
	}

	if event.Job.ID == "" {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, fmt.Errorf("event has no job id")))
	}
	if len(event.Job.Data.InputArtifacts) == 0 {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, fmt.Errorf("event has no input artifacts")))
	}

	raw := event.Job.Data.ActionConfiguration.Configuration.UserParameters
	if raw == "" {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, fmt.Errorf("event has no user parameters")))
	}

	var params userParameters
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, err)).
			WithMessage("user parameters are not valid JSON")
	}
	if params.StaticS3 == "" {
		return nil, syncerrors.NewError("parse",
			syncerrors.Tag(syncerrors.ErrInvalidInput, fmt.Errorf("user parameters do not name a destination bucket")))
	}

	artifact := event.Job.Data.InputArtifacts[0]
	job := &synctypes.Job{
		ID: event.Job.ID,
		Artifact: synctypes.ArtifactRef{
			Bucket: artifact.Location.S3Location.BucketName,
			Key:    artifact.Location.S3Location.ObjectKey,
		},
		DestinationBucket: params.StaticS3,
		Prefix:            params.Prefix,
		MaxEntrySize:      params.MaxEntrySize,
	}
	if artifact.Revision != nil {
		job.Artifact.Revision = *artifact.Revision
	}
	if creds := event.Job.Data.ArtifactCredentials; creds != nil {
		job.ArtifactCredentials = &synctypes.ArtifactCredentials{
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SessionToken,
		}
	}

	return job, nil
}
