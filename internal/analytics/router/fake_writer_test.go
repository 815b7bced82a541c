package router

import (
	"context"

	"github.com/AVGC-lgtm/SmartPatrol/internal/analytics/types"
)

type fakeWriter struct {
	patrolRows []types.PatrolEventRow
	scanRows   []types.ScanFactRow
	insertErr  error
}

func (f *fakeWriter) InsertPatrolEvent(_ context.Context, row types.PatrolEventRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.patrolRows = append(f.patrolRows, row)
	return nil
}

func (f *fakeWriter) InsertScanFact(_ context.Context, row types.ScanFactRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.scanRows = append(f.scanRows, row)
	return nil
}
