package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bmvandoren/vol2bird/internal/db"
	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/publish"
	"github.com/bmvandoren/vol2bird/internal/report"
)

const publishTimeout = 10 * time.Second

// writeSinks stores vp in every output the flags asked for.
func writeSinks(ctx context.Context, o *options, fsys fsutil.FileSystem, vp *profile.VerticalProfile) error {
	if o.dbPath != "" {
		archive, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		runID, err := archive.RecordProfile(ctx, vp, o.input)
		archive.Close()
		if err != nil {
			return err
		}
		monitoring.Logf("[archive] stored run %s in %s", runID, o.dbPath)
	}

	if o.plotPath != "" {
		if err := report.WritePlot(fsys, o.plotPath, vp); err != nil {
			return fmt.Errorf("failed to write plot: %w", err)
		}
	}
	if o.htmlPath != "" {
		if err := report.WriteChart(fsys, o.htmlPath, vp); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	}
	if o.xlsxPath != "" {
		if err := report.WriteWorkbook(fsys, o.xlsxPath, vp); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	}

	if len(o.kafkaBrokers) > 0 {
		p, err := publish.NewPublisher(o.kafkaBrokers, o.kafkaTopic)
		if err != nil {
			return err
		}
		defer p.Close()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, vp); err != nil {
			return err
		}
		monitoring.Logf("[publish] sent profile for %s to %s", vp.Metadata.Source, o.kafkaTopic)
	}
	return nil
}
