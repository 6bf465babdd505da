// Package labels provides localized display names for the calculator's
// enums and the record summary shown in the history detail view.
package labels

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/optics"
	"github.com/tabular/shotsmarts/internal/storage"
)

var supportedTags = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var (
	tagMatcher = language.NewMatcher(supportedTags)
	builder    = mustBuild()
)

// Supported returns the languages with a catalog.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supportedTags...)
}

// Default is used when nothing matches.
func Default() language.Tag {
	return language.English
}

// Match picks the best supported language for the requested tags.
func Match(tags ...language.Tag) language.Tag {
	if len(tags) == 0 {
		return Default()
	}
	_, index, confidence := tagMatcher.Match(tags...)
	if confidence == language.No {
		return Default()
	}
	return supportedTags[index]
}

// Resolve parses an Accept-Language value and returns the best match.
func Resolve(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return Default()
	}
	return Match(tags...)
}

// Catalog looks up display strings in one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// For returns the catalog best matching tag, which may be a BCP 47 tag
// such as "zh-CN" or a bare language such as "zh".
func For(tag string) *Catalog {
	lang := Default()
	if parsed, err := language.Parse(strings.TrimSpace(tag)); err == nil {
		lang = Match(parsed)
	}
	return forTag(lang)
}

func forTag(tag language.Tag) *Catalog {
	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

func (c *Catalog) Tag() language.Tag { return c.tag }

func (c *Catalog) Light(l exposure.LightCondition) string {
	return c.lookup("light." + string(l))
}

func (c *Catalog) Scene(s exposure.SceneMode) string {
	return c.lookup("scene." + string(s))
}

func (c *Catalog) Metering(m exposure.MeteringMode) string {
	return c.lookup("metering." + string(m))
}

func (c *Catalog) Sensor(s optics.Sensor) string {
	return c.lookup("sensor." + string(s))
}

// Summary renders the paragraph describing a saved record.
func (c *Catalog) Summary(rec storage.Record) string {
	f := rec.Result.Format()
	return c.printer.Sprintf(keySummary,
		c.Scene(rec.SceneMode),
		c.Light(rec.LightCondition),
		f.Aperture,
		f.ShutterSpeed,
		strconv.Itoa(int(rec.ISO)),
		c.Metering(rec.MeteringMode),
		f.ExposureCompensation,
	)
}

// lookup falls back to the key itself for unknown values.
func (c *Catalog) lookup(key string) string {
	return c.printer.Sprintf(key)
}
