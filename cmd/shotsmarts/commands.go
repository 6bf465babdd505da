package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/backup"
	"github.com/tabular/shotsmarts/internal/exifimport"
	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/labels"
	"github.com/tabular/shotsmarts/internal/optics"
	"github.com/tabular/shotsmarts/internal/storage"
)

func parseInput(light string, iso float64, scene string) (exposure.Input, error) {
	l, err := exposure.ParseLightCondition(light)
	if err != nil {
		return exposure.Input{}, err
	}
	s, err := exposure.ParseSceneMode(scene)
	if err != nil {
		return exposure.Input{}, err
	}
	in := exposure.Input{LightCondition: l, ISO: iso, SceneMode: s}
	if err := in.Validate(); err != nil {
		return exposure.Input{}, err
	}
	return in, nil
}

func runCalculate(light string, iso float64, scene, locale string) error {
	in, err := parseInput(light, iso, scene)
	if err != nil {
		return err
	}
	catalog := labels.For(locale)
	r := in.Calculate()
	f := r.Format()

	fmt.Printf("Conditions: %s light, ISO %.0f, %s scene\n\n",
		catalog.Light(in.LightCondition), in.ISO, catalog.Scene(in.SceneMode))
	fmt.Printf("Aperture:      %s\n", f.Aperture)
	fmt.Printf("Shutter speed: %s\n", f.ShutterSpeed)
	fmt.Printf("Metering:      %s\n", catalog.Metering(r.MeteringMode))
	fmt.Printf("Compensation:  %s\n", f.ExposureCompensation)
	fmt.Printf("EV:            %.1f\n", exposure.ExposureValue(r.Aperture, r.ShutterSpeed))
	return nil
}

func runSave(ctx context.Context, history *storage.History, name, notes, light string, iso float64, scene string) error {
	in, err := parseInput(light, iso, scene)
	if err != nil {
		return err
	}
	rec, err := history.Save(ctx, storage.Draft{Name: name, Notes: notes, Input: in})
	if err != nil {
		return err
	}
	fmt.Printf("Saved %q (%s): %s\n", rec.Name, rec.ID, rec.Result)
	return nil
}

func runExifCompare(path, light, scene, locale string) error {
	observed, l, s, err := readExif(path, light, scene)
	if err != nil {
		return err
	}
	catalog := labels.For(locale)
	recommended := observed.Recommend(l, s)
	cmp := exifimport.Compare(observed, recommended)

	fmt.Printf("Photo: %s\n", filepath.Base(path))
	if !observed.TakenAt.IsZero() {
		fmt.Printf("Taken: %s\n", observed.TakenAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("\n%-15s %-12s %-12s\n", "", "Photo", "Recommended")
	fmt.Printf("%-15s %-12s %-12s\n", "Aperture", exposure.FormatAperture(observed.Aperture), exposure.FormatAperture(recommended.Aperture))
	fmt.Printf("%-15s %-12s %-12s\n", "Shutter speed", exposure.FormatShutterSpeed(observed.ShutterSpeed()), exposure.FormatShutterSpeed(recommended.ShutterSpeed))
	fmt.Printf("%-15s %-12.0f %-12.0f\n", "ISO", observed.ISO, observed.ISO)
	fmt.Printf("%-15s %-12s %-12s\n", "Compensation", exposure.FormatExposureCompensation(observed.ExposureBias), exposure.FormatExposureCompensation(recommended.ExposureCompensation))
	if observed.MeteringMode != "" {
		fmt.Printf("%-15s %-12s %-12s\n", "Metering", catalog.Metering(observed.MeteringMode), catalog.Metering(recommended.MeteringMode))
	}
	fmt.Printf("\nDifference: %+.1f stops (aperture %+.1f, shutter %+.1f)\n", cmp.Stops, cmp.ApertureStops, cmp.ShutterStops)
	return nil
}

func runExifImport(ctx context.Context, history *storage.History, path, name, light, scene string) error {
	observed, l, s, err := readExif(path, light, scene)
	if err != nil {
		return err
	}
	rec, err := history.Save(ctx, observed.Draft(name, l, s))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %q (%s): %s\n", rec.Name, rec.ID, rec.Result)
	return nil
}

func readExif(path, light, scene string) (exifimport.Observed, exposure.LightCondition, exposure.SceneMode, error) {
	l, err := exposure.ParseLightCondition(light)
	if err != nil {
		return exifimport.Observed{}, "", "", err
	}
	s, err := exposure.ParseSceneMode(scene)
	if err != nil {
		return exifimport.Observed{}, "", "", err
	}
	observed, err := exifimport.ReadFile(path)
	if err != nil {
		return exifimport.Observed{}, "", "", err
	}
	return observed, l, s, nil
}

func runDepthOfField(focal, aperture, distance float64, sensorName string) error {
	sensor, err := optics.ParseSensor(sensorName)
	if err != nil {
		return err
	}
	d, err := optics.ComputeDepthOfField(focal, aperture, distance, sensor)
	if err != nil {
		return err
	}
	fmt.Printf("%.0fmm f/%.1f focused at %s on %s\n", focal, aperture, optics.FormatDistance(distance), sensor)
	fmt.Printf("Near: %s\n", optics.FormatDistance(d.Near))
	fmt.Printf("Far:  %s\n", optics.FormatDistance(d.Far))
	fmt.Printf("Total: %s\n", optics.FormatDistance(d.Total))
	return nil
}

func runHyperfocal(focal, aperture float64, sensorName string) error {
	sensor, err := optics.ParseSensor(sensorName)
	if err != nil {
		return err
	}
	h, err := optics.Hyperfocal(focal, aperture, sensor)
	if err != nil {
		return err
	}
	fmt.Printf("Hyperfocal distance for %.0fmm f/%.1f on %s: %s\n", focal, aperture, sensor, optics.FormatDistance(h))
	return nil
}

func runEquivalent(focal float64, sensorName string) error {
	sensor, err := optics.ParseSensor(sensorName)
	if err != nil {
		return err
	}
	e, err := optics.EquivalentFocalLength(focal, sensor)
	if err != nil {
		return err
	}
	fmt.Printf("%.0fmm on %s (crop %.2fx) frames like %.0fmm on full frame\n", focal, sensor, sensor.CropFactor(), e)
	return nil
}

func listRecords(history *storage.History, query, locale string) error {
	records := history.Search(query)
	catalog := labels.For(locale)

	fmt.Printf("Total Records: %d\n\n", len(records))
	for _, rec := range records {
		f := rec.Result.Format()
		fmt.Printf("%s\n", rec.Name)
		fmt.Printf("   ID: %s\n", rec.ID)
		fmt.Printf("   Date: %s\n", rec.Date.Local().Format(time.RFC3339))
		fmt.Printf("   Conditions: %s, ISO %.0f, %s\n",
			catalog.Light(rec.LightCondition), rec.ISO, catalog.Scene(rec.SceneMode))
		fmt.Printf("   Settings: %s %s %s %s\n",
			f.Aperture, f.ShutterSpeed, catalog.Metering(rec.MeteringMode), f.ExposureCompensation)
		if rec.Notes != "" {
			fmt.Printf("   Notes: %s\n", rec.Notes)
		}
		fmt.Printf("\n")
	}
	return nil
}

func showHistoryStats(ctx context.Context, history *storage.History) error {
	stats, err := history.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("History Statistics\n")
	fmt.Printf("==================\n")
	fmt.Printf("Backend: %s\n", stats.Backend)
	fmt.Printf("Records: %d\n", stats.RecordCount)
	if stats.RecordCount > 0 {
		fmt.Printf("Oldest: %s\n", stats.Oldest.Local().Format(time.RFC3339))
		fmt.Printf("Newest: %s\n", stats.Newest.Local().Format(time.RFC3339))
	}
	for _, l := range exposure.LightConditions() {
		if n := stats.ByLight[l]; n > 0 {
			fmt.Printf("  %-10s %d\n", l.EnglishName(), n)
		}
	}
	for _, s := range exposure.SceneModes() {
		if n := stats.ByScene[s]; n > 0 {
			fmt.Printf("  %-10s %d\n", s.EnglishName(), n)
		}
	}
	if !stats.LastSaved.IsZero() {
		fmt.Printf("Last Saved: %s\n", stats.LastSaved.Local().Format(time.RFC3339))
	} else {
		fmt.Printf("Last Saved: Never\n")
	}
	return nil
}

func renameRecord(ctx context.Context, history *storage.History, rawID, name string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", rawID, err)
	}
	rec, err := history.Rename(ctx, id, name)
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %s to %q\n", rec.ID, rec.Name)
	return nil
}

func deleteRecord(ctx context.Context, history *storage.History, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", rawID, err)
	}
	if err := history.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func runBackupNow(ctx context.Context, scheduler *backup.Scheduler) error {
	path, err := scheduler.RunOnce(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println("History unchanged since the last snapshot; nothing written")
		return nil
	}
	fmt.Printf("Snapshot written to %s\n", path)
	return nil
}
