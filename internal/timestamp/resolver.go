// Package timestamp determines when a screenshot was taken.
package timestamp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
)

type Source string

const (
	SourceFilename       Source = "filename"
	SourceEXIFDateTime   Source = "exif_datetime"
	SourceEXIFOriginal   Source = "exif_datetime_original"
	SourceProcessingTime Source = "processing_time"
)

const (
	exifLayout     = "2006:01:02 15:04:05"
	filenameLayout = "20060102150405"
)

var filenamePattern = regexp.MustCompile(`Screenshot_(\d{8})_(\d{6})`)

// Resolver reads the capture time from the filename, then EXIF, and finally
// falls back to the processing time. Wall-clock values are interpreted in
// the configured zone exactly once and returned in UTC.
type Resolver struct {
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(loc *time.Location, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{loc: loc, now: time.Now, logger: logger}
	if r.loc == nil {
		r.loc = time.UTC
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(path string) (time.Time, Source) {
	if t, ok := r.FromFilename(filepath.Base(path)); ok {
		return t, SourceFilename
	}
	if t, src, ok := r.fromEXIF(path); ok {
		return t, src
	}
	now := r.now().UTC()
	r.logger.Warn().
		Str("filename", filepath.Base(path)).
		Time("fallback", now).
		Msg("no capture time in filename or exif, using processing time")
	return now, SourceProcessingTime
}

// FromFilename parses names like Screenshot_20251112_114640_Game.jpg.
func (r *Resolver) FromFilename(name string) (time.Time, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(filenameLayout, m[1]+m[2], r.loc)
	if err != nil {
		r.logger.Debug().Err(err).Str("filename", name).Msg("filename timestamp did not parse")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (r *Resolver) fromEXIF(path string) (time.Time, Source, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, "", false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("no exif data")
		return time.Time{}, "", false
	}

	fields := []struct {
		name   exif.FieldName
		source Source
	}{
		{exif.DateTime, SourceEXIFDateTime},
		{exif.DateTimeOriginal, SourceEXIFOriginal},
	}
	for _, field := range fields {
		tag, err := x.Get(field.name)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := r.parseEXIF(raw)
		if err != nil {
			r.logger.Debug().Err(err).Str("field", string(field.name)).Msg("exif timestamp did not parse")
			continue
		}
		return t, field.source, true
	}
	return time.Time{}, "", false
}

func (r *Resolver) parseEXIF(raw string) (time.Time, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "\x00")
	t, err := time.ParseInLocation(exifLayout, raw, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse exif time %q: %w", raw, err)
	}
	return t.UTC(), nil
}
