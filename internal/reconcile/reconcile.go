// Package reconcile computes the diff between the extracted artifact
// inventory and the destination listing. It is a pure function: no side
// effects, no network access, deterministic output ordering.
package reconcile

import (
	"sort"
	"strings"

	"github.com/forgekit/sitesync/synctypes"
)

// Plan reconciles artifact entries against destination objects under the
// given prefix and returns the resulting diff. Keys in the plan are
// relative (prefix stripped).
//
// Fingerprint equality is authoritative: a key on both sides with matching
// fingerprints is unchanged. A destination object without a usable
// fingerprint (multipart ETag) is re-uploaded rather than trusted, because
// the artifact side carries no timestamp to compare against; single-part
// re-upload restores a comparable fingerprint so the next run converges.
func Plan(entries []synctypes.ArtifactEntry, objects []synctypes.DestinationEntry, prefix string) *synctypes.DiffPlan {
	local := make(map[string]string, len(entries))
	for _, e := range entries {
		local[e.Path] = e.Fingerprint
	}

	remote := make(map[string]string, len(objects))
	for _, o := range objects {
		if !strings.HasPrefix(o.Key, prefix) {
			continue
		}
		rel := strings.TrimPrefix(o.Key, prefix)
		if rel == "" {
			continue
		}
		remote[rel] = o.Fingerprint
	}

	plan := &synctypes.DiffPlan{}

	for key, fp := range local {
		remoteFP, exists := remote[key]
		switch {
		case !exists:
			plan.ToUpload = append(plan.ToUpload, key)
		case remoteFP != "" && remoteFP == fp:
			plan.Unchanged = append(plan.Unchanged, key)
		default:
			plan.ToUpload = append(plan.ToUpload, key)
		}
	}

	for key := range remote {
		if _, exists := local[key]; !exists {
			plan.ToDelete = append(plan.ToDelete, key)
		}
	}

	sort.Strings(plan.ToUpload)
	sort.Strings(plan.ToDelete)
	sort.Strings(plan.Unchanged)

	return plan
}
