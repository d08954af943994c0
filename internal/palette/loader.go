package palette

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/time/rate"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// SampleSize is the edge length covers are downscaled to before analysis.
	SampleSize = 50

	maxImageBytes = 20 << 20
)

// Loader turns an image URI into an RGBA pixel buffer ready for Analyze.
type Loader interface {
	Pixels(ctx context.Context, uri string) ([]byte, error)
}

// LoaderConfig tunes an HTTPLoader.
type LoaderConfig struct {
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// HTTPLoader fetches covers over HTTP(S) or from file:// URIs.
type HTTPLoader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPLoader creates a loader. A non-positive RequestsPerSecond
// disables rate limiting.
func NewHTTPLoader(cfg LoaderConfig) *HTTPLoader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPLoader{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
	}
}

// Pixels fetches the image and rasterizes it.
func (l *HTTPLoader) Pixels(ctx context.Context, uri string) ([]byte, error) {
	data, err := l.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return Rasterize(data)
}

func (l *HTTPLoader) fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid image uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported image uri scheme %q", u.Scheme)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", uri, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// Rasterize decodes an encoded image, scales it to SampleSize x SampleSize,
// round-trips it through JPEG at maximum quality and returns the RGBA
// bytes of the result.
func Rasterize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	small := image.NewRGBA(image.Rect(0, 0, SampleSize, SampleSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: 100}); err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}

	rgba := image.NewRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return rgba.Pix, nil
}
