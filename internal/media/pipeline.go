package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	// register WebP so uploads from phones decode
	_ "golang.org/x/image/webp"
)

// ErrNoFiles is returned when Ingest is called with an empty batch
var ErrNoFiles = errors.New("at least one image is required")

// ErrUnknownCategory is returned for a category without a target size
var ErrUnknownCategory = errors.New("unknown media category")

// DecodeError reports an upload that is not a readable image
type DecodeError struct {
	Index int
	Name  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image %d (%s) could not be decoded: %v", e.Index, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError reports an encode or storage failure
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// File is one uploaded binary
type File struct {
	Name string
	Data []byte
}

// Size is a target width and height in pixels
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CategoryProperties holds listing photos
const CategoryProperties = "properties"

// DefaultTargets maps categories to their output size
func DefaultTargets() map[string]Size {
	return map[string]Size{
		CategoryProperties: {Width: 800, Height: 500},
	}
}

// Root is the relative directory every asset lives under
const Root = "media"

// Extension is the file extension of every stored asset
const Extension = "jpeg"

// Options configures a Pipeline
type Options struct {
	Targets     map[string]Size
	Quality     int
	Concurrency int
	Logger      *logrus.Logger
}

// Pipeline normalizes uploads to fixed-size JPEGs and stores them
type Pipeline struct {
	storage     Storage
	targets     map[string]Size
	quality     int
	concurrency int
	logger      *logrus.Logger
	newName     func() string
}

// NewPipeline creates a pipeline writing to storage
func NewPipeline(storage Storage, opts Options) *Pipeline {
	p := &Pipeline{
		storage:     storage,
		targets:     opts.Targets,
		quality:     opts.Quality,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		newName:     func() string { return uuid.NewString() },
	}
	if len(p.targets) == 0 {
		p.targets = DefaultTargets()
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = 80
	}
	if p.concurrency <= 0 {
		p.concurrency = runtime.NumCPU()
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	return p
}

// RelativePath builds the stored path for a generated name
func RelativePath(category, name string) string {
	return path.Join(Root, category, name+"."+Extension)
}

// Ingest decodes, crops to the category size, re-encodes and stores every
// file concurrently. The returned paths are in input order. If any file
// fails, assets already written by this batch are removed before the error
// is returned.
func (p *Pipeline) Ingest(ctx context.Context, category string, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	target, ok := p.targets[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	start := time.Now()
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = RelativePath(category, p.newName())
	}
	// a Put that errors may still have stored the object, so every
	// attempted path is removed on failure
	attempted := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := p.convert(i, files[i], target)
			if err != nil {
				return err
			}
			attempted[i] = true
			if err := p.storage.Put(gctx, paths[i], data, "image/jpeg"); err != nil {
				return &WriteError{Path: paths[i], Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.rollback(paths, attempted)
		p.logger.WithFields(logrus.Fields{
			"operation": "Ingest",
			"category":  category,
			"files":     len(files),
		}).WithError(err).Warn("Image batch failed")
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"operation":   "Ingest",
		"category":    category,
		"files":       len(files),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Image batch stored")
	return paths, nil
}

func (p *Pipeline) convert(i int, f File, target Size) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Index: i, Name: f.Name, Err: err}
	}
	img = imaging.Fill(img, target.Width, target.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, &WriteError{Path: f.Name, Err: err}
	}
	return buf.Bytes(), nil
}

// rollback removes what a failed batch may have written. Failures are
// logged only.
func (p *Pipeline) rollback(paths []string, attempted []bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i, ok := range attempted {
		if !ok {
			continue
		}
		if err := p.storage.Delete(ctx, paths[i]); err != nil {
			p.logger.WithFields(logrus.Fields{
				"operation": "rollback",
				"path":      paths[i],
			}).WithError(err).Warn("Failed to remove asset from failed batch")
		}
	}
}

// Remove deletes previously stored assets, logging failures
func (p *Pipeline) Remove(ctx context.Context, paths []string) {
	for _, rel := range paths {
		if err := p.storage.Delete(ctx, rel); err != nil {
			p.logger.WithFields(logrus.Fields{
				"operation": "Remove",
				"path":      rel,
			}).WithError(err).Warn("Failed to remove asset")
		}
	}
}
