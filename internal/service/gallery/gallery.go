package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"facewatch/internal/dto"
	"facewatch/internal/service/vision"

	"github.com/schollz/progressbar/v3"
)

// ErrNoFace is reported for enrolment images in which no face was found.
var ErrNoFace = errors.New("no face found")

// Encoder turns an enrolment image into face descriptors.
type Encoder interface {
	RecognizeFile(path string) ([]vision.Face, error)
}

// Options tune matching and loading.
type Options struct {
	Tolerance      float64   // Max Euclidean distance to accept a match
	HNSWMinGallery int       // Use an HNSW graph at this many entries and above; 0 = never
	Progress       io.Writer // Progress bar output during Load; nil disables it
}

// Match is the result of classifying one descriptor.
type Match struct {
	Index    int
	Name     string
	Distance float64
	Known    bool
}

// SkippedImage is an enrolment image that could not be used.
type SkippedImage struct {
	File string
	Err  error
}

// Gallery is the immutable set of enrolled faces: parallel descriptor and name slices.
type Gallery struct {
	descriptors []vision.Descriptor
	names       []string
	tolerance   float64
	index       index
}

// New builds a gallery from parallel descriptor and name slices.
func New(descriptors []vision.Descriptor, names []string, opts Options) (*Gallery, error) {
	if len(descriptors) != len(names) {
		return nil, fmt.Errorf("gallery has %d descriptors but %d names", len(descriptors), len(names))
	}
	// Written positively so NaN is rejected too.
	if !(opts.Tolerance > 0) || math.IsInf(opts.Tolerance, 1) {
		return nil, fmt.Errorf("tolerance must be a positive number, got %v", opts.Tolerance)
	}

	g := &Gallery{
		descriptors: append([]vision.Descriptor(nil), descriptors...),
		names:       append([]string(nil), names...),
		tolerance:   opts.Tolerance,
	}
	if opts.HNSWMinGallery > 0 && len(g.descriptors) >= opts.HNSWMinGallery {
		g.index = newHNSWIndex(g.descriptors)
	} else {
		g.index = linearIndex(g.descriptors)
	}
	return g, nil
}

// Load encodes every Name[digits].jpg image in dir, in directory order.
// Images without a face are skipped and reported; the first face of every other image is used.
func Load(ctx context.Context, dir string, enc Encoder, opts Options) (*Gallery, []SkippedImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read faces directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsFaceImage(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil && len(files) > 0 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Encoding known faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var (
		descriptors []vision.Descriptor
		names       []string
		skipped     []SkippedImage
	)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		faces, err := enc.RecognizeFile(filepath.Join(dir, name))
		switch {
		case err != nil:
			skipped = append(skipped, SkippedImage{File: name, Err: err})
		case len(faces) == 0:
			skipped = append(skipped, SkippedImage{File: name, Err: ErrNoFace})
		default:
			descriptors = append(descriptors, faces[0].Descriptor)
			names = append(names, DisplayName(name))
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	g, err := New(descriptors, names, opts)
	if err != nil {
		return nil, skipped, err
	}
	return g, skipped, nil
}

// IsFaceImage reports whether a file name looks like an enrolment JPEG.
func IsFaceImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

// DisplayName strips the extension and any trailing digits: "Alice02.jpg" -> "Alice".
func DisplayName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.TrimRight(stem, "0123456789")
}

// Match classifies a descriptor against the gallery. An empty gallery matches nobody.
func (g *Gallery) Match(d vision.Descriptor) Match {
	if len(g.descriptors) == 0 {
		return Match{Index: -1, Name: dto.UnknownName}
	}

	idx, distance := g.index.nearest(d)
	if idx < 0 {
		return Match{Index: -1, Name: dto.UnknownName}
	}
	if distance > g.tolerance {
		return Match{Index: idx, Name: dto.UnknownName, Distance: distance}
	}
	return Match{Index: idx, Name: g.names[idx], Distance: distance, Known: true}
}

// Len is the number of enrolled descriptors.
func (g *Gallery) Len() int {
	return len(g.descriptors)
}

// Tolerance is the distance threshold used by Match.
func (g *Gallery) Tolerance() float64 {
	return g.tolerance
}

// Names returns the display name of every descriptor, in gallery order.
func (g *Gallery) Names() []string {
	return append([]string(nil), g.names...)
}

// Person summarises the enrolment samples of one display name.
type Person struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// People groups the gallery by display name, sorted by name.
func (g *Gallery) People() []Person {
	counts := make(map[string]int)
	for _, name := range g.names {
		counts[name]++
	}

	people := make([]Person, 0, len(counts))
	for name, n := range counts {
		people = append(people, Person{Name: name, Samples: n})
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people
}
