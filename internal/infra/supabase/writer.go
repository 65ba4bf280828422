package supabase

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// Schema-compatibility shim. The same binary runs against deployments
// where optional attribution columns (created_by, ...) have or have not
// been migrated yet. Every write declares a fieldPolicy: an ordered list
// of optional columns to drop, one at a time, when the store reports an
// unknown-column error. Each dropped field buys exactly one retry, so the
// total attempts are bounded by len(policy.optional)+1. This is not a
// generic retry mechanism: any other error propagates immediately.

// fieldPolicy lists the optional columns of a write in drop order.
type fieldPolicy struct {
	optional []string
}

// attributionPolicy covers the submitted-by column present on every
// onboarding table after migration 012.
var attributionPolicy = fieldPolicy{optional: []string{"created_by"}}

// insertRow POSTs a row, degrading per the policy on schema mismatch.
// Returns the representation body on success.
func (c *Client) insertRow(ctx context.Context, table string, row map[string]any, policy fieldPolicy) ([]byte, error) {
	return c.writeWithPolicy(ctx, table, row, policy, func(r map[string]any) ([]byte, error) {
		return c.doRequest(ctx, http.MethodPost, table, r, "return=representation")
	})
}

// patchRow PATCHes rows matched by path (table + filter query), degrading
// per the policy on schema mismatch. Every patch here targets a row the
// caller named, and PostgREST answers 2xx even when the filter matched
// nothing, so the write asks for the representation and maps an empty
// result set to ErrNotFound instead of a silent no-op.
func (c *Client) patchRow(ctx context.Context, path string, patch map[string]any, policy fieldPolicy) error {
	body, err := c.writeWithPolicy(ctx, tableFromPath(path), patch, policy, func(p map[string]any) ([]byte, error) {
		return c.doRequest(ctx, http.MethodPatch, path, p, "return=representation")
	})
	if err != nil {
		return err
	}
	rows, err := decodeRows[json.RawMessage](body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: tableFromPath(path)}
	}
	return nil
}

// upsertRow POSTs with an on_conflict target and merge-duplicates
// resolution, degrading per the policy on schema mismatch.
func (c *Client) upsertRow(ctx context.Context, table, conflictTarget string, row map[string]any, policy fieldPolicy) ([]byte, error) {
	path := table + "?on_conflict=" + conflictTarget
	return c.writeWithPolicy(ctx, table, row, policy, func(r map[string]any) ([]byte, error) {
		return c.doRequest(ctx, http.MethodPost, path, r, "resolution=merge-duplicates,return=representation")
	})
}

func (c *Client) writeWithPolicy(ctx context.Context, table string, row map[string]any, policy fieldPolicy, attempt func(map[string]any) ([]byte, error)) ([]byte, error) {
	remaining := policy.optional

	for {
		body, err := attempt(row)
		if err == nil {
			return body, nil
		}

		col, ok := asUnknownColumn(err)
		if !ok || len(remaining) == 0 {
			return nil, err
		}

		// Drop the next optional field actually present in the row. If
		// none of the remaining policy fields are set, the mismatch is on
		// a required column and degrading cannot help.
		stripped := ""
		for len(remaining) > 0 {
			f := remaining[0]
			remaining = remaining[1:]
			if _, present := row[f]; present {
				delete(row, f)
				stripped = f
				break
			}
		}
		if stripped == "" {
			return nil, err
		}

		c.logger.Warn("supabase: schema mismatch, retrying without optional field",
			zap.String("table", table),
			zap.String("reported_column", col),
			zap.String("stripped_field", stripped),
		)
	}
}
