// Package render turns resolved icons into self-contained SVG data URLs.
package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/iconlens/internal/cachemanager"
	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/tracing"
)

// ColorAuto picks the foreground from the theme.
const ColorAuto = "auto"

// Theme foregrounds used when the color setting is ColorAuto.
const (
	DarkThemeColor  = "#eee"
	LightThemeColor = "#222"
)

const placeholder = "currentColor"

// ResolveColor returns the concrete foreground for a color setting.
func ResolveColor(setting string, dark bool) string {
	setting = strings.TrimSpace(setting)
	if setting != "" && setting != ColorAuto {
		return setting
	}
	if dark {
		return DarkThemeColor
	}
	return LightThemeColor
}

// Resolver resolves reference keys for KeySource.
type Resolver interface {
	ResolveIcon(ctx context.Context, key string) (*catalog.ResolvedIcon, bool)
}

// Options configures a Renderer.
type Options struct {
	Resolver Resolver
	// Color is the concrete foreground substituted for currentColor.
	Color  string
	Tracer trace.Tracer
}

type cacheKey string

type job struct {
	icon  *catalog.ResolvedIcon
	size  int
	color string
}

// Renderer renders icons and caches the output by icon key, content, size
// and color.
type Renderer struct {
	resolver Resolver
	tracer   trace.Tracer
	cache    *cachemanager.ReadThroughCache[cacheKey, string, job]

	mu    sync.RWMutex
	color string
}

// New returns a renderer with an empty cache.
func New(opts Options) *Renderer {
	r := &Renderer{
		resolver: opts.Resolver,
		tracer:   opts.Tracer,
		color:    opts.Color,
	}
	if r.color == "" {
		r.color = DarkThemeColor
	}
	if r.tracer == nil {
		r.tracer = tracing.Noop()
	}
	backend := cachemanager.NewInMemoryCacheManager[cacheKey, string]("render", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval)
	r.cache = cachemanager.NewReadThroughCache[cacheKey, string, job](backend, r.generate, false)
	return r
}

// SetColor changes the active foreground. Entries for other colors stay
// cached but are no longer hit.
func (r *Renderer) SetColor(color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if color != r.color {
		log.Debug(log.CatRender, "Color changed", "from", r.color, "to", color)
		r.color = color
	}
}

// Color returns the active foreground.
func (r *Renderer) Color() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.color
}

// Render renders src at size. It returns "" when a key does not resolve.
func (r *Renderer) Render(ctx context.Context, src Source, size int) string {
	switch s := src.(type) {
	case IconSource:
		return r.RenderIcon(ctx, s.Icon, size)
	case KeySource:
		if r.resolver == nil {
			return ""
		}
		icon, ok := r.resolver.ResolveIcon(ctx, s.Key)
		if !ok {
			return ""
		}
		return r.RenderIcon(ctx, icon, size)
	default:
		return ""
	}
}

// RenderIcon renders icon at size with the active color.
func (r *Renderer) RenderIcon(ctx context.Context, icon *catalog.ResolvedIcon, size int) string {
	if icon == nil {
		return ""
	}
	color := r.Color()
	key := cacheKeyFor(icon, size, color)
	url, err := r.cache.Get(ctx, key, job{icon: icon, size: size, color: color}, cachemanager.NoExpiration)
	if err != nil {
		log.ErrorErr(log.CatRender, "Render failed", err, "icon", icon.Key())
		return ""
	}
	return url
}

// cacheKeyFor identifies one rendering. The digest covers the markup and
// dimensions, so a collection reloaded with different content under the
// same key never hits an entry rendered from the old content.
func cacheKeyFor(icon *catalog.ResolvedIcon, size int, color string) cacheKey {
	d := xxhash.New()
	_, _ = d.WriteString(icon.Body)
	_, _ = d.WriteString("|" + strconv.Itoa(icon.Width) + "x" + strconv.Itoa(icon.Height))
	return cacheKey(color + "|" + strconv.Itoa(size) + "|" + icon.Key() + "|" + strconv.FormatUint(d.Sum64(), 16))
}

// Flush drops every cached rendering.
func (r *Renderer) Flush(ctx context.Context) {
	_ = r.cache.Flush(ctx)
}

// Generated returns how many renderings have been produced, as opposed
// to served from cache.
func (r *Renderer) Generated() int64 {
	return r.cache.Misses()
}

func (r *Renderer) generate(ctx context.Context, j job) (string, error) {
	_, span := r.tracer.Start(ctx, tracing.SpanRender, trace.WithAttributes(
		attribute.String(tracing.AttrIconKey, j.icon.Key()),
		attribute.Int(tracing.AttrIconSize, j.size),
	))
	defer span.End()

	if j.icon.Width <= 0 || j.icon.Height <= 0 {
		return "", fmt.Errorf("icon %s has no dimensions", j.icon.Key())
	}
	return DataURL(ColoredSVG(j.icon, j.size, j.color)), nil
}

// SVG wraps the icon body in a standalone svg element sized size x size.
func SVG(icon *catalog.ResolvedIcon, size int) string {
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" preserveAspectRatio="xMidYMid meet" viewBox="0 0 %d %d">%s</svg>`,
		size, size, icon.Width, icon.Height, icon.Body,
	)
}

// ColoredSVG is SVG with currentColor replaced by color.
func ColoredSVG(icon *catalog.ResolvedIcon, size int, color string) string {
	return strings.ReplaceAll(SVG(icon, size), placeholder, color)
}

// DataURL encodes svg as a base64 data URL.
func DataURL(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
